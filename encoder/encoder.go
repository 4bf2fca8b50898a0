package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Func serializes PCM samples into a container ready for upload.
type Func func(samples []int16, sampleRate int) ([]byte, error)

// ForFormat selects the container encoder for the configured upload format.
func ForFormat(format string) (Func, error) {
	switch format {
	case "wav":
		return EncodeWAV, nil
	case "flac":
		return EncodeFLAC, nil
	default:
		return nil, fmt.Errorf("unknown format %q (use wav or flac)", format)
	}
}
