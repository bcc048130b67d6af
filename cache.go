package mediator

import (
	"reflect"
	"sync"
)

// requestMetadata is everything derived from a request type that dispatch
// needs. It is computed once per type and never changes.
type requestMetadata struct {
	request  reflect.Type
	response reflect.Type
	handler  Contract
	behavior Contract
	wrapper  requestWrapper
}

// streamMetadata is the stream request counterpart of requestMetadata.
type streamMetadata struct {
	request reflect.Type
	element reflect.Type
	handler Contract
	wrapper streamWrapper
}

// Cache memoizes per-type dispatch metadata. Entries are never evicted: the
// set of request types is bounded by the program's types.
//
// A Cache is safe for concurrent use. When two goroutines populate the same
// type at once, the first stored entry wins and both observe it.
//
// One Cache is created per Router; pass the same Cache to several
// Dispatchers with WithCache to share it.
type Cache struct {
	requests sync.Map // map[reflect.Type]*requestMetadata
	streams  sync.Map // map[reflect.Type]*streamMetadata
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// request returns the metadata of the request type typ, calling create on a
// miss.
func (c *Cache) request(typ reflect.Type, create func() *requestMetadata) *requestMetadata {
	if v, ok := c.requests.Load(typ); ok {
		return v.(*requestMetadata)
	}
	v, _ := c.requests.LoadOrStore(typ, create())
	return v.(*requestMetadata)
}

// stream returns the metadata of the stream request type typ, calling create
// on a miss.
func (c *Cache) stream(typ reflect.Type, create func() *streamMetadata) *streamMetadata {
	if v, ok := c.streams.Load(typ); ok {
		return v.(*streamMetadata)
	}
	v, _ := c.streams.LoadOrStore(typ, create())
	return v.(*streamMetadata)
}

// Len returns the number of request and stream request types cached.
func (c *Cache) Len() int {
	n := 0
	count := func(_, _ any) bool {
		n++
		return true
	}
	c.requests.Range(count)
	c.streams.Range(count)
	return n
}

func newRequestMetadata(req, resp reflect.Type, wrapper requestWrapper) *requestMetadata {
	return &requestMetadata{
		request:  req,
		response: resp,
		handler:  contractOf(KindHandler, req, resp),
		behavior: contractOf(KindBehavior, req, resp),
		wrapper:  wrapper,
	}
}

func newStreamMetadata(req, elem reflect.Type, wrapper streamWrapper) *streamMetadata {
	return &streamMetadata{
		request: req,
		element: elem,
		handler: contractOf(KindStreamHandler, req, elem),
		wrapper: wrapper,
	}
}
