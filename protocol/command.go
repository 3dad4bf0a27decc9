package protocol

// Method names understood by the feed.
const (
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"
	MethodPing        = "ping"
)

// DefaultDepth is the number of levels per side requested on subscribe.
const DefaultDepth = 25

// SubscribeParams selects the channel, symbols and depth of a subscription.
type SubscribeParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
	Depth   int      `json:"depth,omitempty"`
}

// SubscribeRequest is sent once per connection, immediately after it opens.
//
//	{"method":"subscribe","params":{"channel":"book","symbol":["BTC/USD"],"depth":25}}
type SubscribeRequest struct {
	Method string          `json:"method"`
	Params SubscribeParams `json:"params"`
	ReqID  uint64          `json:"req_id,omitempty"`
}

// NewBookSubscribe builds the book subscription for a single symbol.
func NewBookSubscribe(symbol string, depth int) *SubscribeRequest {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &SubscribeRequest{
		Method: MethodSubscribe,
		Params: SubscribeParams{
			Channel: ChannelBook,
			Symbol:  []string{symbol},
			Depth:   depth,
		},
	}
}

// NewBookUnsubscribe builds the matching unsubscribe request.
func NewBookUnsubscribe(symbol string, depth int) *SubscribeRequest {
	req := NewBookSubscribe(symbol, depth)
	req.Method = MethodUnsubscribe
	return req
}
