package nem

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultViewCacheSize is the number of parsed templates HTMLViews keeps
const DefaultViewCacheSize = 128

// HTMLViews renders html/template files looked up in a list of directories.
// Names without extension get ".html". Parsed templates are cached.
type HTMLViews struct {
	mu    sync.RWMutex
	dirs  []string
	ext   string
	funcs template.FuncMap
	cache *lru.Cache[string, *template.Template]
}

// NewHTMLViews creates a view engine searching dirs in order
func NewHTMLViews(size int, dirs ...string) (*HTMLViews, error) {
	if size <= 0 {
		size = DefaultViewCacheSize
	}
	cache, err := lru.New[string, *template.Template](size)
	if err != nil {
		return nil, err
	}
	v := &HTMLViews{ext: ".html", cache: cache}
	for _, d := range dirs {
		v.AddDirectory(d)
	}
	return v, nil
}

// Funcs adds functions available to every template
func (v *HTMLViews) Funcs(funcs template.FuncMap) *HTMLViews {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.funcs == nil {
		v.funcs = template.FuncMap{}
	}
	for k, f := range funcs {
		v.funcs[k] = f
	}
	v.cache.Purge()
	return v
}

// AddDirectory appends dir to the search path, ignoring duplicates
func (v *HTMLViews) AddDirectory(dir string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, d := range v.dirs {
		if d == dir {
			return
		}
	}
	v.dirs = append(v.dirs, dir)
	v.cache.Purge()
}

// Directories returns the search path
func (v *HTMLViews) Directories() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.dirs...)
}

// Render executes the template name with data
func (v *HTMLViews) Render(w io.Writer, name string, data any) error {
	tmpl, err := v.lookup(name)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func (v *HTMLViews) lookup(name string) (*template.Template, error) {
	if tmpl, ok := v.cache.Get(name); ok {
		return tmpl, nil
	}

	v.mu.RLock()
	dirs := append([]string(nil), v.dirs...)
	funcs := v.funcs
	v.mu.RUnlock()

	file := name
	if filepath.Ext(file) == "" {
		file += v.ext
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, filepath.FromSlash(file))
		if _, err := os.Stat(p); err != nil {
			continue
		}
		tmpl, err := template.New(filepath.Base(p)).Funcs(funcs).ParseFiles(p)
		if err != nil {
			return nil, err
		}
		v.cache.Add(name, tmpl)
		return tmpl, nil
	}
	return nil, fmt.Errorf("Failed to lookup view %q in views directories %q", name, dirs)
}
