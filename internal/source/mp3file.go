// ABOUTME: Looping MP3 file source decoded with go-mp3
// ABOUTME: Lets the binary stream a local file without a media framework
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/netcast-project/netcast-go/internal/audio"
)

// MP3FileSource decodes a local MP3 file to 16-bit stereo PCM, looping back
// to the start at end of file.
type MP3FileSource struct {
	path    string
	file    *os.File
	decoder *mp3.Decoder
}

func NewMP3FileSource(path string) (*MP3FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3 %s: %w", path, err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode mp3 %s: %w", path, err)
	}
	return &MP3FileSource{path: path, file: f, decoder: dec}, nil
}

func (s *MP3FileSource) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.decoder, p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if seekErr := s.rewind(); seekErr != nil {
			return n, seekErr
		}
		err = nil
	}
	n -= n % s.Format().BytesPerFrame()
	return n, err
}

func (s *MP3FileSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", s.path, err)
	}
	dec, err := mp3.NewDecoder(s.file)
	if err != nil {
		return fmt.Errorf("reopen decoder for %s: %w", s.path, err)
	}
	s.decoder = dec
	return nil
}

// Format reports the decoder output: go-mp3 always yields 16-bit stereo at
// the file's sample rate.
func (s *MP3FileSource) Format() audio.Format {
	return audio.Format{
		Encoding: audio.FormatInt16,
		Rate:     s.decoder.SampleRate(),
		Channels: 2,
	}
}

func (s *MP3FileSource) Name() string { return s.path }
func (s *MP3FileSource) Close() error { return s.file.Close() }
