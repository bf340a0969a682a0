package engine

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// materialFile is the on-disk material description opened through load_toml.
type materialFile struct {
	WorldOffset string            `toml:"world_offset"`
	FragColor   string            `toml:"frag_color"`
	Uniforms    map[string]string `toml:"uniforms"`
	Textures    map[string]string `toml:"textures"`
}

func readMaterialFile(path string) (materialFile, error) {
	var mf materialFile
	data, err := os.ReadFile(path)
	if err != nil {
		return mf, fmt.Errorf("engine: material %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &mf); err != nil {
		return mf, fmt.Errorf("engine: material %s: %w", path, err)
	}
	return mf, nil
}

// decodeTable parses a flat TOML document into name -> value text. Non-string values
// are formatted with fmt, so "U1=1" yields "1".
func decodeTable(doc string) (map[string]string, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}
