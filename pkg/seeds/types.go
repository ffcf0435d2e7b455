package seeds

// Seed is one sibling server to join at startup.
type Seed struct {
	Host string `yaml:"host" json:"host"` // hostname or IPv6 literal
}

type File struct {
	Servers []Seed `yaml:"servers" json:"servers"`
}
