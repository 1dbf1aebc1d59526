package workspace

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// MarkerFile is the name of the JSON file binding a workspace to a challenge.
const MarkerFile = ".topcoderrc"

var (
	// ErrMarkerMissing is returned when the workspace has no marker file.
	ErrMarkerMissing = errors.MarkerError("workspace is not initialized: " + MarkerFile + " not found").Build()
	// ErrMarkerMalformed is returned when the marker is not a JSON object.
	ErrMarkerMalformed = errors.MarkerError("workspace marker " + MarkerFile + " is not valid JSON").Build()
	// ErrChallengeIDMissing is returned when the marker carries no usable challenge id.
	ErrChallengeIDMissing = errors.MarkerError("workspace marker " + MarkerFile + " does not name a challengeId").Build()
	// ErrMarkerExists is returned by InitMarker when a marker is present and force is unset.
	ErrMarkerExists = errors.MarkerError("workspace is already initialized").Build()
)

// Marker is the decoded content of the marker file.
type Marker struct {
	ChallengeID string
	Path        string
}

type markerDoc struct {
	ChallengeID json.RawMessage `json:"challengeId"`
}

// ReadMarker loads and validates the marker file at the root of a workspace.
func ReadMarker(root string) (Marker, error) {
	data, path, err := ReadMarkerFile(root)
	if err != nil {
		return Marker{}, err
	}
	id, err := ParseMarker(data)
	if err != nil {
		return Marker{}, err
	}
	return Marker{ChallengeID: id, Path: path}, nil
}

// ReadMarkerFile returns the raw marker content and its path.
func ReadMarkerFile(root string) ([]byte, string, error) {
	path := filepath.Join(root, MarkerFile)
	data, err := os.ReadFile(path) // #nosec G304 -- marker lives in the user's own workspace
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, ErrMarkerMissing.WithContext("path", path)
		}
		return nil, path, errors.WrapError(err, errors.CategoryFileSystem, "failed to read workspace marker").
			WithContext("path", path).
			Build()
	}
	return data, path, nil
}

// ParseMarker extracts the challenge id from marker content. Comments and
// trailing commas are tolerated. A numeric challengeId is accepted and kept
// in its literal decimal form. Nothing but whitespace may follow the object.
func ParseMarker(data []byte) (string, error) {
	var doc markerDoc
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return "", ErrMarkerMalformed.Wrap(err)
	}
	if _, err := dec.Token(); !stderrors.Is(err, io.EOF) {
		return "", ErrMarkerMalformed.WithContext("reason", "content after the JSON object")
	}
	raw := bytes.TrimSpace(doc.ChallengeID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrChallengeIDMissing
	}

	var id string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", ErrMarkerMalformed.Wrap(err)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		id = string(raw)
	default:
		return "", ErrChallengeIDMissing.WithContext("value", string(raw))
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrChallengeIDMissing
	}
	return id, nil
}

// InitMarker binds root to challengeID by writing the marker file. An
// existing marker is replaced only when force is set.
func InitMarker(root, challengeID string, force bool) (string, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return "", ErrChallengeIDMissing
	}
	path := filepath.Join(root, MarkerFile)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", ErrMarkerExists.WithContext("path", path)
		}
	}

	data, err := json.MarshalIndent(map[string]string{"challengeId": challengeID}, "", "  ")
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "failed to encode workspace marker").Build()
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- marker is a regular project file
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to write workspace marker").
			WithContext("path", path).
			Build()
	}
	return path, nil
}
