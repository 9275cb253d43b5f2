package audio

import (
	"errors"
	"fmt"
	"sync"
)

type sink struct {
	Sink
	active bool
}

// Router fans audio Msgs out to several named sinks, e.g. one decoder per
// channel of a multichannel recording.
type Router struct {
	sync.RWMutex // for map & variables
	sinks        map[string]*sink
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{
		sinks: make(map[string]*sink),
	}
}

// Write will write the Msg to all enabled audio sinks. Every sink receives
// the Msg even if writing to another one failed.
func (r *Router) Write(msg Msg) error {
	r.RLock()
	defer r.RUnlock()

	var errs []error
	for name, s := range r.sinks {
		if !s.active {
			continue
		}
		if err := s.Write(msg); err != nil {
			errs = append(errs, &SinkError{Name: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// AddSink adds an audio sink. When marked as active, incoming audio Msgs
// will be written to it.
func (r *Router) AddSink(name string, s Sink, active bool) {
	r.Lock()
	defer r.Unlock()
	r.sinks[name] = &sink{s, active}
}

// RemoveSink removes an audio sink without closing it.
func (r *Router) RemoveSink(name string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.sinks[name]; !ok {
		return fmt.Errorf("unknown sink %s", name)
	}
	delete(r.sinks, name)
	return nil
}

// Sink returns the requested audio Sink from the router.
func (r *Router) Sink(name string) (Sink, error) {
	r.RLock()
	defer r.RUnlock()
	s, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("unknown sink %s", name)
	}
	return s.Sink, nil
}

// EnableSink marks the audio Sink as (in)active.
func (r *Router) EnableSink(name string, active bool) error {
	r.Lock()
	defer r.Unlock()
	s, ok := r.sinks[name]
	if !ok {
		return fmt.Errorf("unknown sink %s", name)
	}
	s.active = active
	return nil
}

// Close closes and removes all sinks.
func (r *Router) Close() error {
	r.Lock()
	defer r.Unlock()

	var errs []error
	for name, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, &SinkError{Name: name, Err: err})
		}
		delete(r.sinks, name)
	}
	return errors.Join(errs...)
}

// SinkError is used when data could not be written to a particular audio
// Sink.
type SinkError struct {
	Name string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
