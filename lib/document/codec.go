package document

import (
	"encoding/json"

	"github.com/ether/etherdoc/lib/exception"
)

// WireOperation is the JSON envelope of an operation.
type WireOperation struct {
	Kind string          `json:"kind"`
	Op   json.RawMessage `json:"op"`
}

func EncodeOperation(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WireOperation{Kind: op.Kind(), Op: body})
}

func DecodeOperation(data []byte) (Operation, error) {
	var wire WireOperation
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, invalidPayload(err)
	}
	return wire.Operation()
}

func (w WireOperation) Operation() (Operation, error) {
	var op Operation
	var err error
	switch w.Kind {
	case KindInsertText:
		op, err = decodeAs[InsertText](w.Op)
	case KindInsertInline:
		op, err = decodeAs[InsertInline](w.Op)
	case KindDeleteRange:
		op, err = decodeAs[DeleteRange](w.Op)
	case KindReplaceInline:
		op, err = decodeAs[ReplaceInline](w.Op)
	case KindWrapRange:
		op, err = decodeAs[WrapRange](w.Op)
	case KindUnwrapRange:
		op, err = decodeAs[UnwrapRange](w.Op)
	case KindSetNodeAttrs:
		op, err = decodeAs[SetNodeAttrs](w.Op)
	case KindSplitNode:
		op, err = decodeAs[SplitNode](w.Op)
	case KindJoinNodes:
		op, err = decodeAs[JoinNodes](w.Op)
	case KindMoveNode:
		op, err = decodeAs[MoveNode](w.Op)
	case KindReplaceChildren:
		op, err = decodeAs[ReplaceChildren](w.Op)
	case KindSequence:
		op, err = decodeAs[Sequence](w.Op)
	case KindRestore:
		op, err = decodeAs[Restore](w.Op)
	default:
		return nil, exception.NewInvalidOperationError("unknown operation kind %q", w.Kind)
	}
	if err != nil {
		return nil, invalidPayload(err)
	}
	return op, nil
}

func decodeAs[T Operation](raw json.RawMessage) (T, error) {
	var op T
	err := json.Unmarshal(raw, &op)
	return op, err
}

func invalidPayload(err error) error {
	appErr := exception.NewInvalidOperationError("malformed operation payload")
	appErr.Cause = err
	return appErr
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	ops := make([]json.RawMessage, len(s.Ops))
	for i, op := range s.Ops {
		encoded, err := EncodeOperation(op)
		if err != nil {
			return nil, err
		}
		ops[i] = encoded
	}
	return json.Marshal(struct {
		Ops []json.RawMessage `json:"ops"`
	}{Ops: ops})
}

func (s *Sequence) UnmarshalJSON(data []byte) error {
	var wire struct {
		Ops []WireOperation `json:"ops"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Ops = make([]Operation, len(wire.Ops))
	for i, w := range wire.Ops {
		op, err := w.Operation()
		if err != nil {
			return err
		}
		s.Ops[i] = op
	}
	return nil
}
