package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/foundry-zero/abigen/internal/diag"
)

type typeJSON struct {
	ID     uint32          `json:"id"`
	Schema json.RawMessage `json:"schema"`
}

type methodJSON struct {
	Name   string   `json:"name"`
	Args   []uint32 `json:"args"`
	Result *uint32  `json:"result"`
	IsView bool     `json:"is_view"`
}

type paramJSON struct {
	Name   string `json:"name,omitempty"`
	TypeID uint32 `json:"type_id"`
}

type resultJSON struct {
	TypeID uint32 `json:"type_id"`
}

type functionJSON struct {
	Name   string      `json:"name"`
	IsView bool        `json:"is_view"`
	IsInit bool        `json:"is_init"`
	Params []paramJSON `json:"params"`
	Result *resultJSON `json:"result"`
}

type flatJSON struct {
	Types   []typeJSON   `json:"types"`
	Methods []methodJSON `json:"methods"`
}

type rootJSON struct {
	SchemaVersion string   `json:"abi_schema_version"`
	Metadata      Metadata `json:"metadata"`
	ABI           struct {
		Functions  []functionJSON  `json:"functions"`
		Types      []typeJSON      `json:"types"`
		RootSchema json.RawMessage `json:"root_schema"`
	} `json:"abi"`
}

// LoadManifest reads and parses an ABI manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrap(diag.MalformedManifest, "", err, "failed to read manifest")
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest document in either accepted shape. It
// assumes structural validation already ran and reports the remaining
// consistency violations: duplicate type ids and duplicate method names.
func ParseManifest(data []byte) (*Manifest, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, diag.Wrap(diag.MalformedManifest, "$", err, "failed to parse manifest JSON")
	}

	var (
		m   *Manifest
		err error
	)
	if _, ok := probe["abi"]; ok {
		m, err = parseRoot(data)
	} else {
		m, err = parseFlat(data)
	}
	if err != nil {
		return nil, err
	}
	if err := checkUniqueness(m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseFlat(data []byte) (*Manifest, error) {
	var doc flatJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, diag.Wrap(diag.MalformedManifest, "$", err, "failed to decode manifest")
	}
	m := &Manifest{Shape: ShapeFlat}
	types, err := decodeTypes(doc.Types, "$.types")
	if err != nil {
		return nil, err
	}
	m.Types = types
	for i, mj := range doc.Methods {
		path := fmt.Sprintf("$.methods[%d]", i)
		method := Method{
			Name:       mj.Name,
			Args:       mj.Args,
			Result:     mj.Result,
			IsView:     mj.IsView,
			Path:       path,
			ResultPath: path + ".result",
		}
		for j := range mj.Args {
			method.ArgPaths = append(method.ArgPaths, fmt.Sprintf("%s.args[%d]", path, j))
		}
		m.Methods = append(m.Methods, method)
	}
	return m, nil
}

func parseRoot(data []byte) (*Manifest, error) {
	var doc rootJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, diag.Wrap(diag.MalformedManifest, "$", err, "failed to decode manifest")
	}
	m := &Manifest{
		Shape:         ShapeRoot,
		SchemaVersion: doc.SchemaVersion,
		Metadata:      doc.Metadata,
	}
	types, err := decodeTypes(doc.ABI.Types, "$.abi.types")
	if err != nil {
		return nil, err
	}
	m.Types = types
	if len(doc.ABI.RootSchema) > 0 && !bytes.Equal(bytes.TrimSpace(doc.ABI.RootSchema), []byte("null")) {
		m.RootSchemaPath = "$.abi.root_schema"
		m.RootSchema, err = decodeSchema(doc.ABI.RootSchema, m.RootSchemaPath)
		if err != nil {
			return nil, err
		}
	}
	for i, fj := range doc.ABI.Functions {
		path := fmt.Sprintf("$.abi.functions[%d]", i)
		method := Method{
			Name:       fj.Name,
			IsView:     fj.IsView,
			IsInit:     fj.IsInit,
			Path:       path,
			ResultPath: path + ".result.type_id",
		}
		for j, p := range fj.Params {
			method.Args = append(method.Args, p.TypeID)
			method.ArgPaths = append(method.ArgPaths, fmt.Sprintf("%s.params[%d].type_id", path, j))
		}
		if fj.Result != nil {
			id := fj.Result.TypeID
			method.Result = &id
		}
		m.Methods = append(m.Methods, method)
	}
	return m, nil
}

func decodeTypes(in []typeJSON, base string) ([]TypeEntry, error) {
	out := make([]TypeEntry, 0, len(in))
	for i, tj := range in {
		path := fmt.Sprintf("%s[%d]", base, i)
		s, err := decodeSchema(tj.Schema, path+".schema")
		if err != nil {
			return nil, err
		}
		out = append(out, TypeEntry{ID: tj.ID, Schema: s, Path: path})
	}
	return out, nil
}

func decodeSchema(raw json.RawMessage, path string) (*Schema, error) {
	if len(raw) == 0 {
		return nil, diag.New(diag.MalformedSchema, path, "schema is missing")
	}
	s := new(Schema)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, diag.Wrap(diag.MalformedSchema, path, err, "failed to decode schema")
	}
	return s, nil
}

func checkUniqueness(m *Manifest) error {
	seenIDs := make(map[uint32]string, len(m.Types))
	for _, t := range m.Types {
		if prev, ok := seenIDs[t.ID]; ok {
			return diag.New(diag.MalformedManifest, t.Path+".id",
				"duplicate type id %d (first declared at %s)", t.ID, prev)
		}
		seenIDs[t.ID] = t.Path
	}
	seenNames := make(map[string]string, len(m.Methods))
	for _, method := range m.Methods {
		if prev, ok := seenNames[method.Name]; ok {
			return diag.New(diag.MalformedManifest, method.Path+".name",
				"duplicate method name %q (first declared at %s)", method.Name, prev)
		}
		seenNames[method.Name] = method.Path
	}
	return nil
}
