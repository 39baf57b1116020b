package clusterd

import "sort"

// SetFeatureEnabled records whether the named feature is enabled.
func (s *Store) SetFeatureEnabled(name string, enabled bool) error {
	return s.update(func(doc *document) error {
		if doc.Features == nil {
			doc.Features = make(map[string]bool)
		}
		doc.Features[name] = enabled
		return nil
	})
}

// FeatureEnabled reports whether the named feature is enabled.
// Features never recorded are disabled.
func (s *Store) FeatureEnabled(name string) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	return doc.Features[name], nil
}

// EnabledFeatures returns the names of enabled features, sorted.
func (s *Store) EnabledFeatures() ([]string, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var names []string
	for name, enabled := range doc.Features {
		if enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SetBootstrapped records that bootstrap completed.
func (s *Store) SetBootstrapped(done bool) error {
	return s.update(func(doc *document) error {
		doc.Bootstrapped = done
		return nil
	})
}

// Bootstrapped reports whether bootstrap completed.
func (s *Store) Bootstrapped() (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	return doc.Bootstrapped, nil
}
