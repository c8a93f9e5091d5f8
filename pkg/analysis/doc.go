// Package analysis maps analysis names to aggregators.
//
// Every analysis consumes one kind of input: hashtag search results, the
// likes of a post, or an author feed. The registry is static; LookupFor
// resolves a name (or the default for an input) and Run executes it,
// logging every record the aggregator had to skip.
//
//	a, err := analysis.LookupFor(analysis.InputHashtag, "reposts")
//	if err != nil {
//	    return err
//	}
//	result := a.Run(analysis.Dataset{Posts: posts}, params, log)
package analysis
