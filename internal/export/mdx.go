package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marco/movieExplorer/internal/favorites"
)

// CollectionFile is the name of the whole-collection document.
const CollectionFile = "favorites.yaml"

// Writer writes exported favorites into a directory
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a writer targeting dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// WriteAll writes one .mdx file per favorite and the collection document.
// It returns the paths written, collection last.
func (w *Writer) WriteAll(items []favorites.Favorite) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	slugs := make(slugSet, len(items))
	entries := make([]Entry, 0, len(items))
	paths := make([]string, 0, len(items)+1)

	for _, f := range items {
		e := NewEntry(f, slugs.claim(GenerateSlug(f.Title, f.ReleaseYear()), f.ID))
		entries = append(entries, e)

		content, err := GenerateMDX(e)
		if err != nil {
			return paths, fmt.Errorf("failed to generate MDX for %d: %w", f.ID, err)
		}

		p := filepath.Join(w.dir, e.Slug+".mdx")
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return paths, fmt.Errorf("failed to write MDX file: %w", err)
		}
		paths = append(paths, p)
	}

	doc, err := GenerateCollection(entries, w.now())
	if err != nil {
		return paths, err
	}
	p := filepath.Join(w.dir, CollectionFile)
	if err := os.WriteFile(p, doc, 0o644); err != nil {
		return paths, fmt.Errorf("failed to write collection file: %w", err)
	}
	return append(paths, p), nil
}

// GenerateMDX creates MDX content with YAML frontmatter
func GenerateMDX(e Entry) (string, error) {
	var sb strings.Builder

	sb.WriteString("---\n")

	// Free-text fields are double quoted: a title like "Alien: Romulus"
	// would otherwise be read back as a mapping.
	var docNode yaml.Node
	if err := docNode.Encode(e); err != nil {
		return "", fmt.Errorf("failed to marshal favorite to YAML: %w", err)
	}
	forceQuotedFields(&docNode, "title", "note", "addedAt")
	yamlData, err := yaml.Marshal(&docNode)
	if err != nil {
		return "", fmt.Errorf("failed to marshal favorite to YAML: %w", err)
	}

	sb.Write(yamlData)
	sb.WriteString("---\n\n")

	sb.WriteString(fmt.Sprintf("# %s", e.Title))
	if e.ReleaseYear > 0 {
		sb.WriteString(fmt.Sprintf(" (%d)", e.ReleaseYear))
	}
	sb.WriteString("\n\n")

	if e.PosterURL != "" {
		sb.WriteString(fmt.Sprintf("![%s poster](%s)\n\n", e.Title, e.PosterURL))
	}

	if e.Overview != "" {
		sb.WriteString("## Synopsis\n\n")
		sb.WriteString(e.Overview)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## My Rating\n\n")
	sb.WriteString(Stars(e.Rating))
	sb.WriteString("\n\n")

	if e.Note != "" {
		sb.WriteString("## Personal Notes\n\n")
		sb.WriteString(e.Note)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Links\n\n")
	sb.WriteString(fmt.Sprintf("- [View on TMDB](%s)\n", e.TMDBURL))

	return sb.String(), nil
}

// GenerateCollection renders all entries as one YAML document
func GenerateCollection(entries []Entry, now time.Time) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	doc := Collection{
		ExportedAt: now.UTC().Format(favorites.TimestampLayout),
		Count:      len(entries),
		Favorites:  entries,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection to YAML: %w", err)
	}
	return data, nil
}

// Stars renders a 0-5 half-point rating, e.g. "★★★★½ (4.5/5)".
func Stars(rating float64) string {
	if rating <= 0 {
		return "Unrated"
	}
	full := int(rating)
	s := strings.Repeat("★", full)
	if rating-float64(full) >= 0.5 {
		s += "½"
	}
	return fmt.Sprintf("%s (%g/5)", s, rating)
}

// forceQuotedFields sets DoubleQuotedStyle on the named scalar fields of a
// mapping node, or of the mapping inside a document node. Node.Encode
// yields the mapping itself.
func forceQuotedFields(doc *yaml.Node, keys ...string) {
	mapping := doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return
		}
		mapping = doc.Content[0]
	}
	if mapping.Kind != yaml.MappingNode {
		return
	}
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if keySet[mapping.Content[i].Value] {
			mapping.Content[i+1].Style = yaml.DoubleQuotedStyle
		}
	}
}
