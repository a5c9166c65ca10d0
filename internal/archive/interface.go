package archive

// Interface is the contract for archiving generated reports. Reports
// are small JSON documents addressed by name.
type Interface interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}
