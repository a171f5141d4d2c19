package panel

import (
	"sort"
	"sync"
)

// Element IDs and classes the dashboard page binds to.
const (
	ElementServerPort   = "server-port"
	ElementDatasite     = "metadata-datasite"
	ElementServerStatus = "server-status"

	ClassSuccess = "success"
	ClassError   = "error"

	GlyphSuccess = "✔️"
	GlyphFailure = "❌"
)

// View is the set of element mutations the controller performs.
type View interface {
	SetInputValue(id, value string)
	SetText(id, text string)
	AddClass(id, class string)
	RemoveClass(id, class string)
}

// Element is a point-in-time copy of one displayed element.
type Element struct {
	ID      string   `json:"id"`
	Value   string   `json:"value"`
	Text    string   `json:"text"`
	Classes []string `json:"classes"`
}

// HasClass reports whether class is present on the element.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

type element struct {
	value   string
	text    string
	classes map[string]struct{}
}

// Document holds the panel's elements server-side and fans every change out to
// subscribers. Slow subscribers miss updates instead of blocking the writer;
// they are expected to resync from Snapshot.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*element
	subs     map[int]chan Element
	nextSub  int
}

// NewDocument creates the three panel elements. portDefault is the input's
// markup default.
func NewDocument(portDefault string) *Document {
	d := &Document{
		elements: map[string]*element{},
		subs:     map[int]chan Element{},
	}
	for _, id := range []string{ElementServerPort, ElementDatasite, ElementServerStatus} {
		d.elements[id] = &element{classes: map[string]struct{}{}}
	}
	d.elements[ElementServerPort].value = portDefault
	return d
}

func (d *Document) SetInputValue(id, value string) {
	d.mutate(id, func(e *element) { e.value = value })
}

func (d *Document) SetText(id, text string) {
	d.mutate(id, func(e *element) { e.text = text })
}

func (d *Document) AddClass(id, class string) {
	d.mutate(id, func(e *element) { e.classes[class] = struct{}{} })
}

func (d *Document) RemoveClass(id, class string) {
	d.mutate(id, func(e *element) { delete(e.classes, class) })
}

// Element returns a copy of the element with id; unknown ids yield a zero Element.
func (d *Document) Element(id string) Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.elements[id]
	if !ok {
		return Element{ID: id}
	}
	return e.snapshot(id)
}

// Snapshot returns all elements ordered by id.
func (d *Document) Snapshot() []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Element, 0, len(d.elements))
	for id, e := range d.elements {
		out = append(out, e.snapshot(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe returns a channel of element updates and a func that ends the
// subscription and closes the channel.
func (d *Document) Subscribe(buffer int) (<-chan Element, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Element, buffer)

	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
			close(ch)
		})
	}
}

func (d *Document) mutate(id string, fn func(*element)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.elements[id]
	if !ok {
		e = &element{classes: map[string]struct{}{}}
		d.elements[id] = e
	}
	fn(e)

	snap := e.snapshot(id)
	for _, ch := range d.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *element) snapshot(id string) Element {
	classes := make([]string, 0, len(e.classes))
	for c := range e.classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return Element{ID: id, Value: e.value, Text: e.text, Classes: classes}
}
