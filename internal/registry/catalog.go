package registry

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
)

// CatalogFile is the root structure of an object catalog (catalog.yaml).
type CatalogFile struct {
	Objects []ObjectDef `yaml:"objects"`
}

// ObjectDef defines one management object in YAML.
type ObjectDef struct {
	Name        string         `yaml:"name"` // canonical object name, e.g. "app:type=Cache"
	Description string         `yaml:"description"`
	Attributes  []AttributeDef `yaml:"attributes"`
}

// AttributeDef defines one attribute in YAML. Type "ref" marks the value
// as the name of another management object.
type AttributeDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Value       any    `yaml:"value"`
	Writable    bool   `yaml:"writable"`
	Description string `yaml:"description"`
}

// LoadCatalog reads an object catalog and registers its objects into the
// given registry. It returns the number of objects registered.
func LoadCatalog(r io.Reader, into *Memory) (int, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return 0, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Objects) == 0 {
		return 0, fmt.Errorf("catalog defines no objects")
	}

	for _, def := range file.Objects {
		name, err := object.ParseName(def.Name)
		if err != nil {
			return 0, fmt.Errorf("object %q: %w", def.Name, err)
		}

		obj := NewObject(def.Description)
		for _, attrDef := range def.Attributes {
			value := attrDef.Value
			if attrDef.Type == "ref" {
				raw, ok := attrDef.Value.(string)
				if !ok {
					return 0, fmt.Errorf("object %q attribute %q: ref value must be an object name string", def.Name, attrDef.Name)
				}
				refName, err := object.ParseName(raw)
				if err != nil {
					return 0, fmt.Errorf("object %q attribute %q: %w", def.Name, attrDef.Name, err)
				}
				value = Ref{Name: refName}
			}
			obj.WithAttribute(attrDef.Name, Attribute{
				Value:       value,
				Type:        attrDef.Type,
				Writable:    attrDef.Writable,
				Description: attrDef.Description,
			})
		}

		if _, err := into.Register(context.Background(), obj, &name); err != nil {
			return 0, fmt.Errorf("register %q: %w", def.Name, err)
		}
	}

	log.Info(log.CatRegistry, "loaded object catalog", "objects", len(file.Objects))
	return len(file.Objects), nil
}

// LoadCatalogFile opens and loads a catalog from disk.
func LoadCatalogFile(path string, into *Memory) (int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return 0, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f, into)
}
