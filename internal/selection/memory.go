package selection

// memoryStore keeps selections for the life of the process.
type memoryStore struct {
	sets map[string][]string
}

// NewMemoryArea creates a selection area that is forgotten on exit.
func NewMemoryArea(maxSize int) *Area {
	return newArea(&memoryStore{sets: make(map[string][]string)}, maxSize)
}

func (m *memoryStore) Load(kind string) ([]string, error) {
	return append([]string(nil), m.sets[kind]...), nil
}

func (m *memoryStore) Save(kind string, ids []string) error {
	if len(ids) == 0 {
		delete(m.sets, kind)
		return nil
	}
	m.sets[kind] = append([]string(nil), ids...)
	return nil
}
