package enrich

import "sync"

// inFlight tracks people with an attempt underway in this process, so two
// attempts for the same person cannot both pass the staleness check and
// submit duplicate jobs.
type inFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{active: make(map[string]struct{})}
}

// acquire marks personID busy. It returns false if it already was.
func (f *inFlight) acquire(personID string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[personID]; busy {
		return nil, false
	}
	f.active[personID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, personID)
			f.mu.Unlock()
		})
	}, true
}
