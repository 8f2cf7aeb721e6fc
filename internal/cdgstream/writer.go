// Package cdgstream flattens a packet stream into the raw .cdg wire format
// and writes it out, adapted from the teacher's internal/rom.ROMBuilder.
package cdgstream

import (
	"fmt"
	"io"
	"os"

	"cdgforge/internal/cdgpacket"
	"cdgforge/internal/obslog"
)

// Bytes concatenates every packet's 16-byte wire form in order. The result
// is exactly len(packets)*cdgpacket.Size bytes, with no header or footer,
// per spec.md §6.1.
func Bytes(packets []cdgpacket.Packet) []byte {
	out := make([]byte, 0, len(packets)*cdgpacket.Size)
	for _, p := range packets {
		b := p.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// WriteTo writes the flattened packet stream to w. logger may be nil; when
// set, a write failure logs at obslog.LevelError before returning.
func WriteTo(w io.Writer, packets []cdgpacket.Packet, logger *obslog.Logger) (int, error) {
	n, err := w.Write(Bytes(packets))
	if err != nil {
		return n, logErr(logger, fmt.Errorf("cdgstream: write: %w", err))
	}
	return n, nil
}

// WriteFile writes the flattened packet stream to a new .cdg file at path.
// logger may be nil; when set, a write failure logs at obslog.LevelError
// before returning.
func WriteFile(path string, packets []cdgpacket.Packet, logger *obslog.Logger) error {
	if err := os.WriteFile(path, Bytes(packets), 0644); err != nil {
		return logErr(logger, fmt.Errorf("cdgstream: write %s: %w", path, err))
	}
	return nil
}

func logErr(logger *obslog.Logger, err error) error {
	if logger != nil && err != nil {
		logger.Log(obslog.ComponentStream, obslog.LevelError, err.Error(), nil)
	}
	return err
}
