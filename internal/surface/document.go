package surface

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

const (
	TagDiv    = "div"
	TagIFrame = "iframe"
)

var (
	ErrContainerNotFound = errors.New("surface: container not found")
	ErrNotContainer      = errors.New("surface: element is not a container")
	ErrNotFrame          = errors.New("surface: element is not an iframe")
	ErrDuplicateID       = errors.New("surface: element id already in use")
)

// Opener creates the content window for a newly embedded frame.
type Opener func(src string) (window.Endpoint, error)

// FrameSpec describes a frame to resolve or create.
type FrameSpec struct {
	ContainerID string
	ID          string
	Src         string
	Classes     []string
}

// FrameInfo is a read-only view of an embedded frame
type FrameInfo struct {
	ID          string   `json:"id"`
	ContainerID string   `json:"container"`
	Src         string   `json:"src"`
	Origin      string   `json:"origin"`
	Classes     []string `json:"classes,omitempty"`
	Connected   bool     `json:"connected"`
}

// Change records one mutation of the document
type Change struct {
	Type string // embed, attach, remove
	ID   string
}

// Document is a minimal element tree holding containers and the frames
// embedded in them.
type Document struct {
	root    *Element
	opener  Opener
	changes []Change
	mu      sync.RWMutex
}

// Element represents a document element
type Element struct {
	TagName  string
	ID       string
	Classes  []string
	Src      string
	Children []*Element
	Parent   *Element

	content window.Endpoint
}

// NewDocument creates an empty document. opener may be nil if frames are
// only ever attached, never embedded.
func NewDocument(opener Opener) *Document {
	return &Document{
		root:   &Element{TagName: "body"},
		opener: opener,
	}
}

// CreateContainer appends a div with the given id to the document body.
func (d *Document) CreateContainer(id string) (*Element, error) {
	if err := utils.ValidateID(id); err != nil {
		return nil, fmt.Errorf("surface: container id: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing := findByID(d.root, id); existing != nil {
		if existing.TagName == TagDiv {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %q is a %s", ErrDuplicateID, id, existing.TagName)
	}

	el := &Element{TagName: TagDiv, ID: id}
	d.root.AddElement(el)
	return el, nil
}

// GetElementByID finds an element by id
func (d *Document) GetElementByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByID(d.root, id)
}

// Embed resolves the frame with spec.ID, creating it inside
// spec.ContainerID when it does not exist yet.
func (d *Document) Embed(spec FrameSpec) (*Element, error) {
	if err := utils.ValidateURL(spec.Src); err != nil {
		return nil, fmt.Errorf("surface: frame src: %w", err)
	}
	if d.opener == nil {
		return nil, errors.New("surface: document has no opener")
	}
	return d.mount(spec, "embed", func() (window.Endpoint, error) {
		return d.opener(spec.Src)
	})
}

// Attach places a frame whose content window already exists, such as a
// remote context connected over a transport. An existing frame with the
// same id has its content replaced.
func (d *Document) Attach(spec FrameSpec, content window.Endpoint) (*Element, error) {
	if content == nil {
		return nil, errors.New("surface: nil content window")
	}
	if spec.Src == "" {
		spec.Src = content.Origin()
	}
	el, err := d.mount(spec, "attach", func() (window.Endpoint, error) {
		return content, nil
	})
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if el.content != content {
		closeContent(el.content)
		el.content = content
	}
	return el, nil
}

func (d *Document) mount(spec FrameSpec, change string, open func() (window.Endpoint, error)) (*Element, error) {
	if err := utils.ValidateID(spec.ID); err != nil {
		return nil, fmt.Errorf("surface: frame id: %w", err)
	}
	if err := utils.ValidateClasses(spec.Classes); err != nil {
		return nil, fmt.Errorf("surface: frame classes: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	container := findByID(d.root, spec.ContainerID)
	if container == nil {
		return nil, fmt.Errorf("%w: %q", ErrContainerNotFound, spec.ContainerID)
	}
	if container.TagName != TagDiv {
		return nil, fmt.Errorf("%w: %q is a %s", ErrNotContainer, spec.ContainerID, container.TagName)
	}

	if existing := findByID(d.root, spec.ID); existing != nil {
		if existing.TagName != TagIFrame {
			return nil, fmt.Errorf("%w: %q is a %s", ErrNotFrame, spec.ID, existing.TagName)
		}
		return existing, nil
	}

	content, err := open()
	if err != nil {
		return nil, fmt.Errorf("surface: open %q: %w", spec.Src, err)
	}

	el := &Element{
		TagName: TagIFrame,
		ID:      spec.ID,
		Classes: append([]string(nil), spec.Classes...),
		Src:     spec.Src,
		content: content,
	}
	container.AddElement(el)
	d.changes = append(d.changes, Change{Type: change, ID: spec.ID})
	return el, nil
}

// Remove detaches the frame with id and closes its content window.
func (d *Document) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := findByID(d.root, id)
	if el == nil || el.TagName != TagIFrame {
		return false
	}
	el.Remove()
	closeContent(el.content)
	el.content = nil
	d.changes = append(d.changes, Change{Type: "remove", ID: id})
	return true
}

// RemoveIf removes the frame with id only while its content is content.
// Transports use it so a stale connection cannot detach its replacement.
func (d *Document) RemoveIf(id string, content window.Endpoint) bool {
	d.mu.Lock()
	el := findByID(d.root, id)
	match := el != nil && el.TagName == TagIFrame && el.content == content
	d.mu.Unlock()
	if !match {
		return false
	}
	return d.Remove(id)
}

// ContentWindow returns the communication endpoint of frame id.
func (d *Document) ContentWindow(id string) (window.Endpoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	el := findByID(d.root, id)
	if el == nil || el.TagName != TagIFrame || el.content == nil {
		return nil, false
	}
	return el.content, true
}

// Frames lists every embedded frame in document order.
func (d *Document) Frames() []FrameInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var frames []FrameInfo
	for _, el := range findByTag(d.root, TagIFrame) {
		info := FrameInfo{
			ID:        el.ID,
			Src:       el.Src,
			Classes:   append([]string(nil), el.Classes...),
			Connected: el.content != nil,
		}
		if el.Parent != nil {
			info.ContainerID = el.Parent.ID
		}
		if el.content != nil {
			info.Origin = el.content.Origin()
		}
		frames = append(frames, info)
	}
	return frames
}

// Changes returns accumulated document changes
func (d *Document) Changes() []Change {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Change{}, d.changes...)
}

// Element methods

// HasClass reports whether the element carries class cls
func (e *Element) HasClass(cls string) bool {
	for _, c := range e.Classes {
		if c == cls {
			return true
		}
	}
	return false
}

// ClassName returns the space-separated class list
func (e *Element) ClassName() string {
	return strings.Join(e.Classes, " ")
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Remove removes element from parent
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	children := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			children = append(children, child)
		}
	}
	e.Parent.Children = children
	e.Parent = nil
}

// Helper methods for querying

func findByID(elem *Element, id string) *Element {
	if id == "" {
		return nil
	}
	if elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByTag(child, tag)...)
	}
	return result
}

func closeContent(content window.Endpoint) {
	if c, ok := content.(io.Closer); ok {
		c.Close()
	}
}
