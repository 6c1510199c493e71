// Package checkpoint serialises and restores engine state. A checkpoint
// document carries the committed state of every stateful instance plus the
// time source, versioned so older tools reject documents they cannot read.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/cxfgo/internal/clock"
	"github.com/vk/cxfgo/internal/engine"
)

// FormatVersion is the checkpoint document format written by this build.
// Restore rejects any other version.
const FormatVersion = 1

// MismatchError reports a checkpoint whose instance tree does not match the
// model being restored. Missing lists stateful instances the document lacks;
// Extra lists document entries the model has no instance for. Paths are
// dotted from the root network.
type MismatchError struct {
	Missing []string
	Extra   []string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing state for %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected state for %s", strings.Join(e.Extra, ", ")))
	}
	return "checkpoint does not match model: " + strings.Join(parts, "; ")
}

// ValueRecord is one serialised state value, carrying its cty type alongside
// the value so restore round-trips exactly.
type ValueRecord struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// InstanceRecord is the serialised state of one instance. Elementary blocks
// carry State; composites carry a nested Instances map.
type InstanceRecord struct {
	State     map[string]ValueRecord     `json:"state,omitempty"`
	Instances map[string]*InstanceRecord `json:"instances,omitempty"`
}

// Document is the on-disk checkpoint format.
type Document struct {
	FormatVersion int                        `json:"format_version"`
	SnapshotID    string                     `json:"snapshot_id"`
	Timestamp     string                     `json:"timestamp"`
	Model         string                     `json:"model"`
	TimeSource    clock.State                `json:"time_source"`
	Instances     map[string]*InstanceRecord `json:"instances"`
	Metadata      map[string]string          `json:"metadata,omitempty"`
}

// Capture snapshots the engine's committed state into a new document.
func Capture(eng *engine.Engine) (*Document, error) {
	instances, err := encodeStates(eng.StateSnapshot())
	if err != nil {
		return nil, err
	}
	return &Document{
		FormatVersion: FormatVersion,
		SnapshotID:    uuid.NewString(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Model:         eng.Network().Name,
		TimeSource:    eng.Clock().State(),
		Instances:     instances,
	}, nil
}

func encodeStates(states map[string]*engine.InstanceState) (map[string]*InstanceRecord, error) {
	if len(states) == 0 {
		return nil, nil
	}
	records := make(map[string]*InstanceRecord, len(states))
	for name, st := range states {
		rec := &InstanceRecord{}
		if len(st.Children) > 0 {
			children, err := encodeStates(st.Children)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			rec.Instances = children
		}
		if len(st.State) > 0 {
			rec.State = make(map[string]ValueRecord, len(st.State))
			for key, v := range st.State {
				vr, err := encodeValue(v)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", name, key, err)
				}
				rec.State[key] = vr
			}
		}
		records[name] = rec
	}
	return records, nil
}

func encodeValue(v cty.Value) (ValueRecord, error) {
	t, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		return ValueRecord{}, err
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return ValueRecord{}, err
	}
	return ValueRecord{Type: t, Value: val}, nil
}

func decodeValue(vr ValueRecord) (cty.Value, error) {
	t, err := ctyjson.UnmarshalType(vr.Type)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(vr.Value, t)
}

// Restore validates a document against the engine's instance tree and, when
// it matches, writes the state and time source back. The engine is untouched
// when an error is returned.
func Restore(eng *engine.Engine, doc *Document) error {
	if doc.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported checkpoint format version %d, want %d", doc.FormatVersion, FormatVersion)
	}

	expected := statePaths("", eng.StateSnapshot())
	got := recordPaths("", doc.Instances)
	if mismatch := diffPaths(expected, got); mismatch != nil {
		return mismatch
	}

	states, err := decodeStates(doc.Instances)
	if err != nil {
		return err
	}
	if err := eng.RestoreState(states); err != nil {
		return err
	}
	return eng.Clock().Restore(doc.TimeSource)
}

func decodeStates(records map[string]*InstanceRecord) (map[string]*engine.InstanceState, error) {
	states := make(map[string]*engine.InstanceState, len(records))
	for name, rec := range records {
		st := &engine.InstanceState{}
		if len(rec.Instances) > 0 {
			children, err := decodeStates(rec.Instances)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			st.Children = children
		}
		if len(rec.State) > 0 {
			st.State = make(map[string]cty.Value, len(rec.State))
			for key, vr := range rec.State {
				v, err := decodeValue(vr)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", name, key, err)
				}
				st.State[key] = v
			}
		}
		states[name] = st
	}
	return states, nil
}

func statePaths(prefix string, states map[string]*engine.InstanceState) map[string]bool {
	paths := make(map[string]bool)
	for name, st := range states {
		path := prefix + name
		if len(st.Children) > 0 {
			for p := range statePaths(path+".", st.Children) {
				paths[p] = true
			}
			continue
		}
		paths[path] = true
	}
	return paths
}

func recordPaths(prefix string, records map[string]*InstanceRecord) map[string]bool {
	paths := make(map[string]bool)
	for name, rec := range records {
		path := prefix + name
		if len(rec.Instances) > 0 {
			for p := range recordPaths(path+".", rec.Instances) {
				paths[p] = true
			}
			continue
		}
		paths[path] = true
	}
	return paths
}

func diffPaths(expected, got map[string]bool) *MismatchError {
	var missing, extra []string
	for p := range expected {
		if !got[p] {
			missing = append(missing, p)
		}
	}
	for p := range got {
		if !expected[p] {
			extra = append(extra, p)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return &MismatchError{Missing: missing, Extra: extra}
}

// WriteFile serialises a document to disk. Output is indented JSON with
// sorted keys, so identical state produces identical bytes apart from the
// snapshot id and timestamp.
func WriteFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// ReadFile loads a checkpoint document from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	return &doc, nil
}
