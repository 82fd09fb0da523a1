package ffmpeg

import "time"

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasVideo   bool
	HasAudio   bool
	AudioCodec string
	SampleRate int
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "ultrafast"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// Encoding holds the codec settings shared by segment and concat encodes
type Encoding struct {
	Preset     string
	CRF        int
	VideoCodec string
	AudioCodec string
}

// videoArgs returns the video codec arguments for an encode
func (enc Encoding) videoArgs() []string {
	args := []string{"-c:v", orDefault(enc.VideoCodec, DefaultVideoCodec), "-preset", orDefault(enc.Preset, DefaultPreset)}
	if enc.CRF > 0 {
		args = append(args, "-crf", itoa(enc.CRF))
	}
	return args
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
