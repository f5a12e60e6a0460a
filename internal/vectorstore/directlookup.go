package vectorstore

// buildDirectLookup implements spec §4.2's "Direct-lookup cache": on
// first query, the store builds {jp_string -> best_entry} from the RAG
// source so exact JP matches are served at confidence 1.0 without any
// embedding call.
func (s *Store) buildDirectLookup() {
	s.directMu.Lock()
	defer s.directMu.Unlock()
	if len(s.direct) > 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Metadata.Source == "" {
			continue
		}
		s.direct[e.Metadata.Source] = Match{
			PatternID:  e.PatternID,
			Similarity: 1.0,
			Document:   e.Text,
			Metadata:   e.Metadata,
		}
	}
}

// directLookup returns an exact match for jpText, if any, without any
// embedding call.
func (s *Store) directLookup(jpText string) (Match, bool) {
	s.buildDirectLookup()
	s.directMu.Lock()
	defer s.directMu.Unlock()
	m, ok := s.direct[jpText]
	return m, ok
}
