package apicall

// ExampleSink receives example property values of request bodies seen by
// the client, e.g. to enrich API documentation. Calls are fire-and-forget.
type ExampleSink interface {
	AddExample(typeKey, propertyKey string, example any)
}
