package api

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/miraigo/miraigo/model"
)

// fakeProvider records the last call and returns a canned response.
type fakeProvider struct {
	name   string
	method Method
	params map[string]any

	resp *Response
	err  error
}

func (f *fakeProvider) CallAPI(ctx context.Context, name string, method Method, params map[string]any) (*Response, error) {
	f.name, f.method, f.params = name, method, params
	return f.resp, f.err
}

func respOf(t *testing.T, body string) *Response {
	t.Helper()
	resp, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse(%s): %v", body, err)
	}
	return resp
}

func TestBindPositionalNamedEquivalence(t *testing.T) {
	spec, ok := Lookup("send_friend_message")
	if !ok {
		t.Fatal("send_friend_message not in catalog")
	}

	chain := []map[string]any{{"type": "Plain", "text": "hi"}}
	positional, err := spec.Bind([]any{int64(123), chain, int64(7)}, nil)
	if err != nil {
		t.Fatalf("positional bind: %v", err)
	}
	named, err := spec.Bind(nil, map[string]any{
		"target": int64(123), "messageChain": chain, "quote": int64(7),
	})
	if err != nil {
		t.Fatalf("named bind: %v", err)
	}
	if !reflect.DeepEqual(positional, named) {
		t.Errorf("positional = %v, named = %v", positional, named)
	}
}

func TestBindRejectsOverlapAndSurplus(t *testing.T) {
	spec, _ := Lookup("recall")

	if _, err := spec.Bind([]any{1}, map[string]any{"target": 1}); err == nil {
		t.Error("overlapping positional and named binding did not fail")
	}
	if _, err := spec.Bind([]any{1, 2}, nil); err == nil {
		t.Error("surplus positional arguments did not fail")
	}

	var perr *ParamError
	_, err := spec.Bind([]any{1, 2}, nil)
	if !errors.As(err, &perr) {
		t.Errorf("error type = %T, want *ParamError", err)
	}
}

func TestBindAllowsSurplusNamed(t *testing.T) {
	spec, _ := Lookup("recall")
	params, err := spec.Bind([]any{5}, map[string]any{"future": "field"})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if params["target"] != 5 || params["future"] != "field" {
		t.Errorf("params = %v", params)
	}
}

func TestBindDropsNil(t *testing.T) {
	spec, _ := Lookup("send_friend_message")
	params, err := spec.Bind([]any{int64(1), []any{}, nil}, nil)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, ok := params["quote"]; ok {
		t.Errorf("nil quote not dropped: %v", params)
	}
}

func TestParseResponseEnvelope(t *testing.T) {
	resp := respOf(t, `{"code":0,"msg":"","data":{"nickname":"bot"}}`)
	if resp.Code != 0 || string(resp.Data) != `{"nickname":"bot"}` {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParseResponseBarePayload(t *testing.T) {
	resp := respOf(t, `{"session":"abc123"}`)
	var payload struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("unmarshal bare payload: %v", err)
	}
	if payload.Session != "abc123" {
		t.Errorf("session = %q", payload.Session)
	}
}

func TestParseResponseDomainError(t *testing.T) {
	_, err := ParseResponse([]byte(`{"code":10,"msg":"no permission"}`))
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if apiErr.Code != 10 || apiErr.Msg != "no permission" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	// A declared command with a fake transport returning data D
	// yields parse(D) through DecodeData.
	provider := &fakeProvider{
		resp: respOf(t, `{"code":0,"msg":"","data":[{"id":1,"nickname":"a"},{"id":2,"nickname":"b"}]}`),
	}
	spec, _ := Lookup("friendList")

	resp, err := spec.Call(context.Background(), provider, nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	friends, err := DecodeData[[]model.Friend](resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(friends) != 2 || friends[0].ID != 1 || friends[1].Nickname != "b" {
		t.Errorf("friends = %+v", friends)
	}
	if provider.name != "friendList" || provider.method != MethodGet {
		t.Errorf("dispatched %s %s", provider.method, provider.name)
	}
}

func TestResponseFieldBesideEnvelope(t *testing.T) {
	resp := respOf(t, `{"code":0,"msg":"","messageId":7}`)
	id, err := DecodeField[int64](resp, "messageId")
	if err != nil {
		t.Fatalf("decode messageId: %v", err)
	}
	if id != 7 {
		t.Errorf("messageId = %d, want 7", id)
	}
}

func TestProxyWrongMethod(t *testing.T) {
	provider := &fakeProvider{resp: respOf(t, `{"code":0,"msg":""}`)}

	read, _ := Lookup("friend_list")
	if _, err := NewProxy(provider, read).Set(context.Background()); !errors.Is(err, ErrWrongMethod) {
		t.Errorf("set on read proxy: %v, want ErrWrongMethod", err)
	}

	write, _ := Lookup("send_friend_message")
	if _, err := NewProxy(provider, write).Get(context.Background()); !errors.Is(err, ErrWrongMethod) {
		t.Errorf("get on write proxy: %v, want ErrWrongMethod", err)
	}
}

func TestPartialProxyPairsMethods(t *testing.T) {
	provider := &fakeProvider{resp: respOf(t, `{"code":0,"msg":"","data":{"name":"g"}}`)}
	spec, _ := Lookup("group_config")

	pair := NewProxy(provider, spec).Partial(int64(123))

	if _, err := pair.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if provider.method != MethodRestGet || provider.params["target"] != int64(123) {
		t.Errorf("get dispatched %s %v", provider.method, provider.params)
	}

	if _, err := pair.Set(context.Background(), map[string]any{"name": "new"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if provider.method != MethodRestPost {
		t.Errorf("set dispatched %s", provider.method)
	}
	if _, ok := provider.params["config"]; !ok {
		t.Errorf("set params = %v, want config bound", provider.params)
	}
}

func TestWireCommand(t *testing.T) {
	if got := WireCommand("resp/newFriendRequestEvent"); got != "resp_newFriendRequestEvent" {
		t.Errorf("WireCommand = %q", got)
	}
}

func TestOperateCode(t *testing.T) {
	tests := []struct {
		command string
		op      model.RespOperate
		want    int
		wantErr bool
	}{
		{"resp/newFriendRequestEvent", model.RespAllow, 0, false},
		{"resp/newFriendRequestEvent", model.RespDecline, 1, false},
		{"resp/newFriendRequestEvent", model.RespDecline | model.RespBan, 2, false},
		{"resp/memberJoinRequestEvent", model.RespIgnore, 2, false},
		{"resp/memberJoinRequestEvent", model.RespDecline | model.RespBan, 3, false},
		{"resp/memberJoinRequestEvent", model.RespIgnore | model.RespBan, 4, false},
		{"resp/botInvitedJoinGroupRequestEvent", model.RespDecline, 1, false},
		{"resp/botInvitedJoinGroupRequestEvent", model.RespDecline | model.RespBan, 0, true},
	}
	for _, tt := range tests {
		got, err := OperateCode(tt.command, tt.op)
		if tt.wantErr {
			if err == nil {
				t.Errorf("OperateCode(%s, %b) succeeded, want error", tt.command, tt.op)
			}
			continue
		}
		if err != nil {
			t.Errorf("OperateCode(%s, %b): %v", tt.command, tt.op, err)
			continue
		}
		if got != tt.want {
			t.Errorf("OperateCode(%s, %b) = %d, want %d", tt.command, tt.op, got, tt.want)
		}
	}
}
