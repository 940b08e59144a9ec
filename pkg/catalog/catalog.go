// Package catalog keeps track of the libraries and backgrounds available to
// iterenrich, stored in a TOML file:
//
//	[[library]]
//	name = "KEGG_2021_Human"
//	file = "libraries/kegg_2021_human.json"
//	active = true
//
//	[[background]]
//	name = "protein_coding"
//	file = "backgrounds/protein_coding.json"
//	default = true
//
// Relative file paths are resolved against the catalog's directory.
package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/iterenrich/pkg/errors"
	"github.com/matzehuels/iterenrich/pkg/geneset"
)

// Library is a catalog entry for a gene set library file.
type Library struct {
	Name        string `toml:"name"`
	File        string `toml:"file"`
	Description string `toml:"description,omitempty"`
	Active      bool   `toml:"active"`
}

// Background is a catalog entry for a background gene list file.
type Background struct {
	Name    string `toml:"name"`
	File    string `toml:"file"`
	Default bool   `toml:"default,omitempty"`
}

// Catalog lists known libraries and backgrounds.
type Catalog struct {
	Libraries   []Library    `toml:"library"`
	Backgrounds []Background `toml:"background"`

	dir string
}

// Load reads a catalog file. A missing file yields an empty catalog rooted
// at the file's directory so it can be populated and saved.
func Load(path string) (*Catalog, error) {
	c := &Catalog{dir: filepath.Dir(path)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse catalog %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the catalog to path.
func (c *Catalog) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks names and rejects duplicates and multiple defaults.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, l := range c.Libraries {
		if err := errors.ValidateName(l.Name); err != nil {
			return err
		}
		if l.File == "" {
			return errors.New(errors.ErrCodeInvalidLibrary, "library %q: file is required", l.Name)
		}
		if seen[l.Name] {
			return errors.New(errors.ErrCodeInvalidLibrary, "duplicate library %q", l.Name)
		}
		seen[l.Name] = true
	}

	seen = make(map[string]bool)
	defaults := 0
	for _, b := range c.Backgrounds {
		if err := errors.ValidateName(b.Name); err != nil {
			return err
		}
		if b.File == "" {
			return errors.New(errors.ErrCodeInvalidInput, "background %q: file is required", b.Name)
		}
		if seen[b.Name] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate background %q", b.Name)
		}
		seen[b.Name] = true
		if b.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "%d backgrounds marked default, want at most one", defaults)
	}
	return nil
}

// Active returns the active libraries in catalog order.
func (c *Catalog) Active() []Library {
	var out []Library
	for _, l := range c.Libraries {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

// Library looks up a library entry by name.
func (c *Catalog) Library(name string) (Library, error) {
	i := slices.IndexFunc(c.Libraries, func(l Library) bool { return l.Name == name })
	if i < 0 {
		return Library{}, errors.New(errors.ErrCodeLibraryNotFound, "library %q is not in the catalog", name)
	}
	return c.Libraries[i], nil
}

// Background looks up a background by name. An empty name selects the
// default background.
func (c *Catalog) Background(name string) (Background, error) {
	i := slices.IndexFunc(c.Backgrounds, func(b Background) bool {
		if name == "" {
			return b.Default
		}
		return b.Name == name
	})
	if i < 0 {
		if name == "" {
			return Background{}, errors.New(errors.ErrCodeNotFound, "catalog has no default background")
		}
		return Background{}, errors.New(errors.ErrCodeNotFound, "background %q is not in the catalog", name)
	}
	return c.Backgrounds[i], nil
}

// AddLibrary adds or replaces a library entry.
func (c *Catalog) AddLibrary(l Library) error {
	if err := errors.ValidateName(l.Name); err != nil {
		return err
	}
	if i := slices.IndexFunc(c.Libraries, func(e Library) bool { return e.Name == l.Name }); i >= 0 {
		c.Libraries[i] = l
		return nil
	}
	c.Libraries = append(c.Libraries, l)
	return nil
}

// AddBackground adds or replaces a background entry. A new default
// background takes the default from any other.
func (c *Catalog) AddBackground(b Background) error {
	if err := errors.ValidateName(b.Name); err != nil {
		return err
	}
	if b.Default {
		for i := range c.Backgrounds {
			c.Backgrounds[i].Default = false
		}
	}
	if i := slices.IndexFunc(c.Backgrounds, func(e Background) bool { return e.Name == b.Name }); i >= 0 {
		c.Backgrounds[i] = b
		return nil
	}
	c.Backgrounds = append(c.Backgrounds, b)
	return nil
}

// SetActive toggles a library.
func (c *Catalog) SetActive(name string, active bool) error {
	i := slices.IndexFunc(c.Libraries, func(l Library) bool { return l.Name == name })
	if i < 0 {
		return errors.New(errors.ErrCodeLibraryNotFound, "library %q is not in the catalog", name)
	}
	c.Libraries[i].Active = active
	return nil
}

// Path resolves an entry's file against the catalog directory.
func (c *Catalog) Path(file string) string {
	if filepath.IsAbs(file) || c.dir == "" {
		return file
	}
	return filepath.Join(c.dir, file)
}

// OpenLibrary loads the library named name.
func (c *Catalog) OpenLibrary(name string) (*geneset.Library, error) {
	entry, err := c.Library(name)
	if err != nil {
		return nil, err
	}
	return geneset.ReadLibraryFile(c.Path(entry.File))
}

// OpenBackground loads the background named name, or the default one.
func (c *Catalog) OpenBackground(name string) (*geneset.Background, geneset.Validation, error) {
	entry, err := c.Background(name)
	if err != nil {
		return nil, geneset.Validation{}, err
	}
	return geneset.ReadBackgroundFile(c.Path(entry.File))
}
