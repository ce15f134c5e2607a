package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// imageStore keeps generated illustrations on disk, keyed by game id, and
// serves them under a public URL prefix. Writes are upsert-safe: concurrent
// writers for the same game converge on the same object.
type imageStore struct {
	dir     string
	baseURL string
}

func newImageStore(dir, baseURL string) *imageStore {
	return &imageStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func storyImageName(gameID string, index, total int) string {
	if total <= 1 {
		return gameID + ".png"
	}
	return fmt.Sprintf("%s-%d.png", gameID, index)
}

func (st *imageStore) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(st.dir, name))
	return err == nil
}

func (st *imageStore) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(st.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return st.URL(name), nil
}

func (st *imageStore) URL(name string) string {
	return st.baseURL + "/static/story-images/" + name
}

// decodeImageData accepts raw base64 or a data URI and returns the image
// bytes.
func decodeImageData(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, errors.New("no image data")
	}
	parts := strings.SplitN(data, ",", 2)
	if len(parts) == 2 {
		data = parts[1]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
