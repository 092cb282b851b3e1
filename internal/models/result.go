package models

// ResultKind tags the outcome of a single feed fetch.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultHTTPError
	ResultNetworkError
	ResultParseError
)

// String returns the stable name used in logs, metrics and events.
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultHTTPError:
		return "http_error"
	case ResultNetworkError:
		return "network_error"
	case ResultParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// FeedResult is the outcome of fetching and parsing one search page.
// News is only meaningful for ResultOK and StatusCode only for ResultHTTPError.
type FeedResult struct {
	Kind       ResultKind
	News       []News
	StatusCode int
	Err        error
}

// OK reports whether the fetch succeeded, including a zero-result success.
func (r FeedResult) OK() bool {
	return r.Kind == ResultOK
}

// Len returns the number of records carried by a successful result.
func (r FeedResult) Len() int {
	if !r.OK() {
		return 0
	}
	return len(r.News)
}

// Success builds a ResultOK result. A nil slice is normalized to an empty one.
func Success(news []News) FeedResult {
	if news == nil {
		news = []News{}
	}
	return FeedResult{Kind: ResultOK, News: news}
}

// HTTPFailure builds a ResultHTTPError result for a non-200 response.
func HTTPFailure(status int, err error) FeedResult {
	return FeedResult{Kind: ResultHTTPError, StatusCode: status, Err: err}
}

// NetworkFailure builds a ResultNetworkError result.
func NetworkFailure(err error) FeedResult {
	return FeedResult{Kind: ResultNetworkError, Err: err}
}

// ParseFailure builds a ResultParseError result.
func ParseFailure(err error) FeedResult {
	return FeedResult{Kind: ResultParseError, Err: err}
}
