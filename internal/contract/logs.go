package contract

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/utils"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
	"github.com/valyala/fastjson"
)

// ErrNoMatchingEvent means the log's first topic matches no event in the ABI.
var ErrNoMatchingEvent = errors.New("no matching event in ABI")

// LogEvent is a successfully decoded log.
type LogEvent struct {
	Name      string                 `json:"name"`
	Signature string                 `json:"signature"`
	Topic     ethgo.Hash             `json:"topic"`
	Args      map[string]interface{} `json:"args"`
}

// MarshalJSON renders integer arguments as decimal strings so that uint256
// values survive JavaScript number parsing.
func (e *LogEvent) MarshalJSON() ([]byte, error) {
	args := make(map[string]interface{}, len(e.Args))
	for k, v := range e.Args {
		args[k] = jsonValue(v)
	}
	return json.Marshal(struct {
		Name      string                 `json:"name"`
		Signature string                 `json:"signature"`
		Topic     string                 `json:"topic"`
		Args      map[string]interface{} `json:"args"`
	}{e.Name, e.Signature, e.Topic.String(), args})
}

// LogResult is the outcome for one input log. Exactly one of Event and Err
// is set. Err is ErrNoMatchingEvent or a DECODE_FAILED error.
type LogResult struct {
	Event *LogEvent `json:"event"`
	Err   error     `json:"-"`
}

// MarshalJSON 失败时输出 error 字段
func (r LogResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Event *LogEvent `json:"event"`
			Error string    `json:"error"`
		}{nil, r.Err.Error()})
	}
	return json.Marshal(struct {
		Event *LogEvent `json:"event"`
	}{r.Event})
}

// Decoded returns the null-on-failure view: one entry per result, nil where
// the log could not be decoded.
func Decoded(results []LogResult) []*LogEvent {
	out := make([]*LogEvent, len(results))
	for i, r := range results {
		if r.Err == nil {
			out[i] = r.Event
		}
	}
	return out
}

// LogDecoder decodes logs against one ABI. It is immutable once built and
// safe for concurrent use.
type LogDecoder struct {
	byTopic map[ethgo.Hash]*abi.Event
}

// NewLogDecoder indexes the non-anonymous events of a by topic.
func NewLogDecoder(a *abi.ABI) *LogDecoder {
	d := &LogDecoder{byTopic: make(map[ethgo.Hash]*abi.Event)}
	if a == nil {
		return d
	}
	names := make([]string, 0, len(a.Events))
	for name := range a.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ev := a.Events[name]
		if ev.Anonymous {
			continue
		}
		if _, dup := d.byTopic[ev.ID()]; !dup {
			d.byTopic[ev.ID()] = ev
		}
	}
	return d
}

// Decode decodes every log independently, preserving order.
func (d *LogDecoder) Decode(logs []*ethgo.Log) []LogResult {
	results := make([]LogResult, len(logs))
	for i, log := range logs {
		ev, err := d.DecodeOne(log)
		results[i] = LogResult{Event: ev, Err: err}
	}
	return results
}

// DecodeOne 解析单条日志
func (d *LogDecoder) DecodeOne(log *ethgo.Log) (ev *LogEvent, err error) {
	if log == nil || len(log.Topics) == 0 {
		return nil, ErrNoMatchingEvent
	}
	event, ok := d.byTopic[log.Topics[0]]
	if !ok {
		return nil, ErrNoMatchingEvent
	}

	indexed := 0
	for _, elem := range event.Inputs.TupleElems() {
		if elem.Indexed {
			indexed++
		}
	}
	if len(log.Topics)-1 != indexed {
		return nil, apperrors.DecodeFailed("parseLog",
			fmt.Errorf("event %s expects %d indexed topics, log has %d", event.Name, indexed, len(log.Topics)-1)).
			WithContext("event", event.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			ev = nil
			err = apperrors.DecodeFailed("parseLog", fmt.Errorf("malformed log: %v", r)).
				WithContext("event", event.Name)
		}
	}()

	args, perr := event.ParseLog(log)
	if perr != nil {
		return nil, apperrors.DecodeFailed("parseLog", perr).WithContext("event", event.Name)
	}
	return &LogEvent{
		Name:      event.Name,
		Signature: event.Sig(),
		Topic:     event.ID(),
		Args:      args,
	}, nil
}

var logParserPool fastjson.ParserPool

// ParseLogJSON decodes log objects as returned by eth_getLogs or inside a
// receipt. data may hold a single object or an array.
func ParseLogJSON(data []byte) ([]*ethgo.Log, error) {
	p := logParserPool.Get()
	defer logParserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse logs JSON: %w", err)
	}

	var items []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeArray:
		items, _ = v.Array()
	case fastjson.TypeObject:
		items = []*fastjson.Value{v}
	default:
		return nil, fmt.Errorf("logs must be an object or an array, got %s", v.Type())
	}

	logs := make([]*ethgo.Log, 0, len(items))
	for i, item := range items {
		log, err := unmarshalLog(item)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func unmarshalLog(v *fastjson.Value) (*ethgo.Log, error) {
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("expected object, got %s", v.Type())
	}

	log := &ethgo.Log{Removed: v.GetBool("removed")}
	var err error
	if err = decodeAddr(&log.Address, v, "address"); err != nil {
		return nil, err
	}
	if log.Data, err = decodeBytes(log.Data[:0], v, "data"); err != nil {
		return nil, err
	}
	if log.BlockNumber, err = decodeUintOptional(v, "blockNumber"); err != nil {
		return nil, err
	}
	if log.LogIndex, err = decodeUintOptional(v, "logIndex"); err != nil {
		return nil, err
	}
	if log.TransactionIndex, err = decodeUintOptional(v, "transactionIndex"); err != nil {
		return nil, err
	}
	if err = decodeHashOptional(&log.BlockHash, v, "blockHash"); err != nil {
		return nil, err
	}
	if err = decodeHashOptional(&log.TransactionHash, v, "transactionHash"); err != nil {
		return nil, err
	}

	topics := v.GetArray("topics")
	log.Topics = make([]ethgo.Hash, len(topics))
	for i, t := range topics {
		b, err := t.StringBytes()
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
		if err := log.Topics[i].UnmarshalText(b); err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
	}
	return log, nil
}

// isKeySet checks if a key exists and is not null
func isKeySet(v *fastjson.Value, key string) bool {
	value := v.Get(key)
	return value != nil && value.Type() != fastjson.TypeNull
}

func decodeUintOptional(v *fastjson.Value, key string) (uint64, error) {
	if !isKeySet(v, key) {
		return 0, nil
	}
	str := string(v.GetStringBytes(key))
	if !strings.HasPrefix(str, "0x") {
		return 0, fmt.Errorf("field '%s' does not have 0x prefix: '%s'", key, str)
	}
	hexStr := str[2:]
	if hexStr == "" {
		hexStr = "0"
	}
	num, err := strconv.ParseUint(hexStr, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("field '%s' failed to decode uint: %s", key, str)
	}
	return num, nil
}

// decodeBytes decodes a hex string field; a missing field yields nil
func decodeBytes(dst []byte, v *fastjson.Value, key string) ([]byte, error) {
	if !isKeySet(v, key) {
		return nil, nil
	}
	str := string(v.GetStringBytes(key))
	if !strings.HasPrefix(str, "0x") {
		return nil, fmt.Errorf("field '%s' does not have 0x prefix: '%s'", key, str)
	}
	str = str[2:]
	if len(str)%2 != 0 {
		return nil, fmt.Errorf("field '%s' has odd length", key)
	}
	buf, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", key, err)
	}
	return append(dst, buf...), nil
}

func decodeAddr(a *ethgo.Address, v *fastjson.Value, key string) error {
	b := v.GetStringBytes(key)
	if len(b) == 0 {
		return fmt.Errorf("field '%s' not found", key)
	}
	if !utils.IsValidEthAddress(string(b)) {
		return fmt.Errorf("field '%s' has invalid address format: '%s'", key, b)
	}
	return a.UnmarshalText(b)
}

func decodeHashOptional(h *ethgo.Hash, v *fastjson.Value, key string) error {
	if !isKeySet(v, key) {
		return nil
	}
	if err := h.UnmarshalText(v.GetStringBytes(key)); err != nil {
		return fmt.Errorf("field '%s': %w", key, err)
	}
	return nil
}

// jsonValue 把 ABI 解码结果转换为 JSON 友好的形式
func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case ethgo.Address:
		return t.String()
	case ethgo.Hash:
		return t.String()
	case []byte:
		return "0x" + hex.EncodeToString(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = jsonValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = jsonValue(vv)
		}
		return out
	default:
		return v
	}
}
