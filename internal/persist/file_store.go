package persist

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrChecksum means a save file does not match its recorded checksum.
	ErrChecksum = errors.New("save file checksum mismatch")
	// ErrSlotName means the slot name cannot be used as a file name.
	ErrSlotName = errors.New("invalid slot name")
)

const fileMagic = "LSAV1"

// FileStore keeps one file per slot: a header line carrying the blake2b-256
// sum of the payload, then the payload. Writes go through a temp file and a
// rename.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(slot string) (string, error) {
	if slot == "" || slot == "." || slot == ".." || strings.ContainsAny(slot, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrSlotName, slot)
	}
	return filepath.Join(s.dir, slot+".sav"), nil
}

// Load returns the verified payload. A missing file is not an error.
func (s *FileStore) Load(_ context.Context, slot string) ([]byte, bool, error) {
	path, err := s.path(slot)
	if err != nil {
		return nil, false, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read slot %s: %w", slot, err)
	}
	header, payload, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok {
		return nil, false, fmt.Errorf("slot %s: %w", slot, ErrChecksum)
	}
	magic, sum, _ := strings.Cut(string(header), " ")
	want, err := hex.DecodeString(sum)
	if magic != fileMagic || err != nil {
		return nil, false, fmt.Errorf("slot %s: %w", slot, ErrChecksum)
	}
	got := blake2b.Sum256(payload)
	if !bytes.Equal(got[:], want) {
		return nil, false, fmt.Errorf("slot %s: %w", slot, ErrChecksum)
	}
	return payload, true, nil
}

func (s *FileStore) Save(_ context.Context, slot string, payload []byte) error {
	path, err := s.path(slot)
	if err != nil {
		return err
	}
	sum := blake2b.Sum256(payload)
	var buf bytes.Buffer
	buf.Grow(len(fileMagic) + 1 + hex.EncodedLen(len(sum)) + 1 + len(payload))
	buf.WriteString(fileMagic)
	buf.WriteByte(' ')
	buf.WriteString(hex.EncodeToString(sum[:]))
	buf.WriteByte('\n')
	buf.Write(payload)

	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes the slot file. Deleting a missing slot succeeds.
func (s *FileStore) Delete(_ context.Context, slot string) error {
	path, err := s.path(slot)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}
