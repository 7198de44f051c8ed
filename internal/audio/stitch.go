// Package audio assembles per-segment WAV data into a single output file,
// inserting a fixed run of silence between consecutive segments.
//
// This is the only audio-shaping responsibility owned by the service; the
// waveforms themselves come from the external synthesis engine.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const millisecondsPerSecond = 1000

// wavAudioFormat is the PCM format tag written to the output header.
const wavAudioFormat = 1

// Static errors.
var (
	// ErrNoSegments indicates stitching was attempted with no input segments.
	ErrNoSegments = errors.New("no audio segments to stitch")
	// ErrFormatMismatch indicates segments disagree on sample rate, channel
	// count, or bit depth.
	ErrFormatMismatch = errors.New("audio segments have mismatched formats")
	// ErrNegativeSilence indicates a negative inter-segment silence duration.
	ErrNegativeSilence = errors.New("silence duration must be non-negative")
)

// StitchToFile decodes the given WAV segments, concatenates them with
// silenceMs milliseconds of silence between consecutive segments, and writes
// the result to outputPath. All segments must share one sample format.
func StitchToFile(segments [][]byte, silenceMs int, outputPath string) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}

	if silenceMs < 0 {
		return fmt.Errorf("%w: got %d ms", ErrNegativeSilence, silenceMs)
	}

	buffers, bitDepth, err := decodeSegments(segments)
	if err != nil {
		return err
	}

	combined := concatenate(buffers, silenceMs)

	return writeWAVFile(outputPath, combined, bitDepth)
}

// decodeSegments decodes every segment and verifies format agreement.
func decodeSegments(segments [][]byte) ([]*goaudio.IntBuffer, int, error) {
	buffers := make([]*goaudio.IntBuffer, 0, len(segments))
	bitDepth := 0

	for segmentIndex, segmentData := range segments {
		decoder := wav.NewDecoder(bytes.NewReader(segmentData))

		buffer, decodeErr := decoder.FullPCMBuffer()
		if decodeErr != nil {
			return nil, 0, fmt.Errorf(
				"failed to decode audio segment %d: %w",
				segmentIndex,
				decodeErr,
			)
		}

		if segmentIndex == 0 {
			bitDepth = int(decoder.BitDepth)
		} else {
			mismatchErr := checkFormat(
				buffers[0],
				buffer,
				bitDepth,
				int(decoder.BitDepth),
			)
			if mismatchErr != nil {
				return nil, 0, fmt.Errorf(
					"segment %d: %w",
					segmentIndex,
					mismatchErr,
				)
			}
		}

		buffers = append(buffers, buffer)
	}

	return buffers, bitDepth, nil
}

func checkFormat(first, other *goaudio.IntBuffer, firstDepth, otherDepth int) error {
	if first.Format.SampleRate != other.Format.SampleRate ||
		first.Format.NumChannels != other.Format.NumChannels ||
		firstDepth != otherDepth {
		return fmt.Errorf(
			"%w: %d Hz/%d ch/%d bit vs %d Hz/%d ch/%d bit",
			ErrFormatMismatch,
			first.Format.SampleRate,
			first.Format.NumChannels,
			firstDepth,
			other.Format.SampleRate,
			other.Format.NumChannels,
			otherDepth,
		)
	}

	return nil
}

// concatenate joins the decoded buffers, inserting the silence run between
// consecutive segments. No silence precedes the first segment or follows the
// last one.
func concatenate(buffers []*goaudio.IntBuffer, silenceMs int) *goaudio.IntBuffer {
	format := buffers[0].Format
	silenceSamples := SilenceSampleCount(
		format.SampleRate,
		format.NumChannels,
		silenceMs,
	)

	totalSamples := silenceSamples * (len(buffers) - 1)
	for _, buffer := range buffers {
		totalSamples += len(buffer.Data)
	}

	data := make([]int, 0, totalSamples)

	for bufferIndex, buffer := range buffers {
		if bufferIndex > 0 {
			data = append(data, make([]int, silenceSamples)...)
		}

		data = append(data, buffer.Data...)
	}

	return &goaudio.IntBuffer{
		Format:         format,
		Data:           data,
		SourceBitDepth: buffers[0].SourceBitDepth,
	}
}

// SilenceSampleCount returns the number of interleaved samples that represent
// silenceMs milliseconds of silence for the given format.
func SilenceSampleCount(sampleRate, numChannels, silenceMs int) int {
	frames := sampleRate * silenceMs / millisecondsPerSecond

	return frames * numChannels
}

// writeWAVFile encodes the buffer to a WAV file at path.
func writeWAVFile(path string, buffer *goaudio.IntBuffer, bitDepth int) error {
	outputFile, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf("failed to create output file: %w", createErr)
	}

	encoder := wav.NewEncoder(
		outputFile,
		buffer.Format.SampleRate,
		bitDepth,
		buffer.Format.NumChannels,
		wavAudioFormat,
	)

	writeErr := encoder.Write(buffer)
	if writeErr != nil {
		_ = outputFile.Close()

		return fmt.Errorf("failed to write audio data: %w", writeErr)
	}

	encodeCloseErr := encoder.Close()
	fileCloseErr := outputFile.Close()

	if encodeCloseErr != nil {
		return fmt.Errorf("failed to finalize output file: %w", encodeCloseErr)
	}

	if fileCloseErr != nil {
		return fmt.Errorf("failed to close output file: %w", fileCloseErr)
	}

	return nil
}
