package registry

import "github.com/bft-labs/shipctl/internal/domain"

// Source produces the module definitions of a session. It is read again on
// every session reset.
type Source interface {
	Definitions(faults *domain.Faults) ([]Definition, error)
}

// FileSource reads definitions from a modules file.
type FileSource string

// Definitions implements Source.
func (s FileSource) Definitions(faults *domain.Faults) ([]Definition, error) {
	doc, err := LoadFile(string(s))
	if err != nil {
		return nil, err
	}
	return doc.Definitions(faults), nil
}

// BytesSource reads definitions from an in-memory modules file.
type BytesSource struct {
	Data   []byte
	Format Format
}

// Definitions implements Source.
func (s BytesSource) Definitions(faults *domain.Faults) ([]Definition, error) {
	doc, err := Parse(s.Data, s.Format)
	if err != nil {
		return nil, err
	}
	return doc.Definitions(faults), nil
}
