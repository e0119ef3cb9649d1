package audio

import (
	"encoding/binary"
)

const wavHeaderSize = 44

// EncodeWAV renders 16-bit PCM samples as a complete, self-describing WAV
// file. Used to package a finished utterance for the transcription engine.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	bitsPerSample := uint16(16)
	byteRate := uint32(sampleRate * channels * int(bitsPerSample/8))
	blockAlign := uint16(channels * int(bitsPerSample/8))
	dataSize := uint32(len(samples) * 2)

	out := make([]byte, wavHeaderSize+int(dataSize))

	// RIFF chunk descriptor
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], 36+dataSize)
	copy(out[8:12], "WAVE")

	// "fmt " sub-chunk
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // 16 for PCM
	binary.LittleEndian.PutUint16(out[20:22], 1)  // 1 for PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], byteRate)
	binary.LittleEndian.PutUint16(out[32:34], blockAlign)
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	// "data" sub-chunk
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], dataSize)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*2:], uint16(s))
	}

	return out
}
