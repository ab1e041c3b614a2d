package script

// Set indexes scripts by function name.
type Set map[string]NamedScript

func NewSet(scripts []NamedScript) Set {
	s := make(Set, len(scripts))
	for _, script := range scripts {
		s[script.Name] = script
	}
	return s
}

func (s Set) Prepare(test string) (NamedScript, bool) {
	script, ok := s[PreparePrefix+test]
	return script, ok
}

func (s Set) Cleanup(test string) (NamedScript, bool) {
	script, ok := s[CleanupPrefix+test]
	return script, ok
}
