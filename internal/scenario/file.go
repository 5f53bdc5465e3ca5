package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a profiles file:
//
//	profiles:
//	  - name: ChatBurstUser
//	    wait: {min: 100ms, max: 500ms}
//	    username: "burst_{{randomInt 1000 10000}}"
//	    tasks:
//	      - weight: 1
//	        requests:
//	          - {name: chat, method: POST, path: /webhook/chat, expect: [200],
//	             body: {mensaje: Hola, usuario: "{{username}}"}}
type File struct {
	Profiles []*Profile `yaml:"profiles"`
}

// LoadFile reads and validates a YAML profiles file.
func LoadFile(path string, engine *TemplateEngine) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	c, err := Decode(bytes.NewReader(data), engine)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses profiles from r.
func Decode(r io.Reader, engine *TemplateEngine) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no profiles", ErrInvalidProfile)
		}
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles", ErrInvalidProfile)
	}

	c := NewCatalog()
	for _, p := range f.Profiles {
		if err := p.Validate(engine); err != nil {
			return nil, err
		}
		c.Add(p)
	}
	return c, nil
}

// Encode writes the catalog's profiles as YAML.
func Encode(w io.Writer, c *Catalog) error {
	profiles, err := c.Select()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Profiles: profiles}); err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	return enc.Close()
}
