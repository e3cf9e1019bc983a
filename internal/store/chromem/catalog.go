package chromem

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// catalog maps document_id to the chunk ids stored for it, in upsert
// order. Callers hold the store lock while mutating it.
type catalog struct {
	path string // empty for in-memory stores
	docs map[string][]string
}

func loadCatalog(dbPath, collectionName string, inMemory bool) (*catalog, error) {
	c := &catalog{docs: map[string][]string{}}
	if inMemory {
		return c, nil
	}
	c.path = filepath.Join(dbPath, collectionName+".catalog.json")
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &c.docs); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *catalog) add(documentID, chunkID string) {
	for _, id := range c.docs[documentID] {
		if id == chunkID {
			return
		}
	}
	c.docs[documentID] = append(c.docs[documentID], chunkID)
}

func (c *catalog) get(documentID string) []string {
	ids := c.docs[documentID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (c *catalog) remove(documentID string) {
	delete(c.docs, documentID)
}

func (c *catalog) clear() {
	c.docs = map[string][]string{}
}

func (c *catalog) save() error {
	if c.path == "" {
		return nil
	}
	data, err := json.Marshal(c.docs)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
