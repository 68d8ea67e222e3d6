// Package audio converts recordings into the shape speech recognisers
// expect: 16-bit little-endian PCM, mono, at [SpeechRate].
//
// Recordings arrive from Discord attachments, the WebSocket API and the
// terminal in whatever rate and channel layout the recording device chose.
// [ForSpeech] downmixes and resamples raw PCM; [DecodeWAV] and [EncodeWAV]
// move between PCM and the RIFF/WAV container.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SpeechRate is the sample rate speech recognisers are trained on.
const SpeechRate = 16000

const bitsPerSample = 16

// ErrNotWAV is returned by [DecodeWAV] for data that is not 16-bit PCM WAV.
var ErrNotWAV = errors.New("audio: not a 16-bit PCM WAV file")

// ForSpeech converts interleaved 16-bit PCM with the given rate and channel
// count to mono at [SpeechRate]. Non-positive rate or channels are taken as
// [SpeechRate] and mono.
func ForSpeech(pcm []byte, rate, channels int) []byte {
	if rate <= 0 {
		rate = SpeechRate
	}
	return Resample(Downmix(pcm, channels), rate, SpeechRate)
}

// Downmix averages each frame of interleaved 16-bit PCM down to one sample.
// Mono input is returned unchanged. A trailing partial frame is dropped.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameSize := channels * 2
	frames := len(pcm) / frameSize
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			sum += int32(sample(pcm, i*channels+ch))
		}
		putSample(out, i, clamp(sum/int32(channels)))
	}
	return out
}

// Resample converts 16-bit mono PCM from srcRate to dstRate with linear
// interpolation. Equal or invalid rates return the input unchanged.
func Resample(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		s0 := sample(pcm, idx)
		s1 := s0
		if idx+1 < srcSamples {
			s1 = sample(pcm, idx+1)
		}
		putSample(out, i, int16(float64(s0)*(1-frac)+float64(s1)*frac))
	}
	return out
}

// ── WAV ─────────────────────────────────────────────────────────────────────

// EncodeWAV wraps 16-bit little-endian PCM in a RIFF/WAV container.
func EncodeWAV(pcm []byte, rate, channels int) []byte {
	byteRate := rate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

// DecodeWAV returns the PCM payload of a 16-bit PCM WAV file together with
// its sample rate and channel count. Chunks other than "fmt " and "data"
// are skipped.
func DecodeWAV(data []byte) (pcm []byte, rate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, ErrNotWAV
	}
	var haveFmt bool
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			// Streaming encoders leave the data size unset; take the rest.
			if id == "data" && haveFmt {
				return data[body:], rate, channels, nil
			}
			return nil, 0, 0, fmt.Errorf("%w: chunk %q overruns file", ErrNotWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			f := data[body : body+size]
			format := binary.LittleEndian.Uint16(f[0:2])
			bits := binary.LittleEndian.Uint16(f[14:16])
			if format != 1 || bits != bitsPerSample {
				return nil, 0, 0, fmt.Errorf("%w: format %d with %d bits", ErrNotWAV, format, bits)
			}
			channels = int(binary.LittleEndian.Uint16(f[2:4]))
			rate = int(binary.LittleEndian.Uint32(f[4:8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, 0, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			return data[body : body+size], rate, channels, nil
		}
		// Chunks are padded to an even size.
		off = body + size + size%2
	}
	return nil, 0, 0, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}

// ── Samples ─────────────────────────────────────────────────────────────────

func sample(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}

func putSample(pcm []byte, i int, s int16) {
	binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
}

func clamp(v int32) int16 {
	return int16(max(-32768, min(32767, v)))
}
