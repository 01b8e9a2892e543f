package miraigo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/miraigo/miraigo/adapter"
	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
	"github.com/miraigo/miraigo/message"
	"github.com/miraigo/miraigo/model"
)

// recordedCall captures one CallAPI invocation on the fake session.
type recordedCall struct {
	name   string
	method api.Method
	params map[string]any
}

// fakeSession satisfies adapter.Session in memory.
type fakeSession struct {
	calls []recordedCall
	resp  *api.Response
	err   error
}

func (f *fakeSession) QQ() int64 { return 12345678 }
func (f *fakeSession) Key() string { return "fake" }
func (f *fakeSession) Subscribe(...*bus.Bus) {}
func (f *fakeSession) Start(context.Context) error { return nil }
func (f *fakeSession) Wait() error { return nil }
func (f *fakeSession) Emit(context.Context, event.Event) {}
func (f *fakeSession) EmitRaw(context.Context, json.RawMessage) error { return nil }
func (f *fakeSession) Shutdown(context.Context) error { return nil }

func (f *fakeSession) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	f.calls = append(f.calls, recordedCall{name: name, method: method, params: params})
	if f.resp == nil && f.err == nil {
		resp, _ := api.ParseResponse([]byte(`{"code":0,"msg":""}`))
		return resp, nil
	}
	return f.resp, f.err
}

func newFakeBot(t *testing.T) (*Bot, *fakeSession) {
	t.Helper()
	session := &fakeSession{}
	bot := New(12345678, nil)
	bot.session = session
	return bot, session
}

func TestSendResolvesTargetFromEvent(t *testing.T) {
	chain := message.New(
		&message.Source{ID: 41, Time: 1},
		&message.Plain{Text: "hello"},
	)
	group := model.Group{ID: 777, Name: "g"}

	tests := []struct {
		name       string
		ev         event.MessageEvent
		wantName   string
		wantParams map[string]any
	}{
		{
			name:     "friend",
			ev:       &event.FriendMessage{Sender: model.Friend{ID: 22}, MessageChain: chain},
			wantName: "sendFriendMessage",
			wantParams: map[string]any{
				"target": int64(22),
			},
		},
		{
			name:     "group",
			ev:       &event.GroupMessage{Sender: model.GroupMember{ID: 9, Group: group}, MessageChain: chain},
			wantName: "sendGroupMessage",
			wantParams: map[string]any{
				"target": int64(777),
			},
		},
		{
			name:     "temp",
			ev:       &event.TempMessage{Sender: model.GroupMember{ID: 9, Group: group}, MessageChain: chain},
			wantName: "sendTempMessage",
			wantParams: map[string]any{
				"qq":    int64(9),
				"group": int64(777),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, session := newFakeBot(t)
			if _, err := bot.Send(context.Background(), tt.ev, message.Text("re"), true); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(session.calls) != 1 {
				t.Fatalf("calls = %v", session.calls)
			}
			call := session.calls[0]
			if call.name != tt.wantName {
				t.Errorf("command = %s, want %s", call.name, tt.wantName)
			}
			for k, v := range tt.wantParams {
				if call.params[k] != v {
					t.Errorf("param %s = %v, want %v", k, call.params[k], v)
				}
			}
			// quote=true threads the source message id.
			if call.params["quote"] != int64(41) {
				t.Errorf("quote = %v, want 41", call.params["quote"])
			}
		})
	}
}

func TestSendWithoutQuoteOmitsParameter(t *testing.T) {
	bot, session := newFakeBot(t)
	ev := &event.FriendMessage{Sender: model.Friend{ID: 22}, MessageChain: message.Text("x")}

	if _, err := bot.Send(context.Background(), ev, message.Text("re"), false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, ok := session.calls[0].params["quote"]; ok {
		t.Errorf("quote present: %v", session.calls[0].params)
	}
}

func TestSendRejectsEmptyChain(t *testing.T) {
	bot, session := newFakeBot(t)
	ev := &event.FriendMessage{Sender: model.Friend{ID: 22}}

	_, err := bot.Send(context.Background(), ev, message.Chain{}, false)
	var perr *api.ParamError
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want *api.ParamError", err)
	}
	if len(session.calls) != 0 {
		t.Errorf("empty chain reached the transport: %v", session.calls)
	}
}

func TestRequestVerbs(t *testing.T) {
	req := &event.MemberJoinRequestEvent{
		RequestKey: event.RequestKey{EventID: 5, FromID: 6, GroupID: 7},
	}

	tests := []struct {
		name        string
		verb        func(*Bot) error
		wantName    string
		wantOperate int
	}{
		{
			name:        "allow",
			verb:        func(b *Bot) error { return b.Allow(context.Background(), req, "welcome") },
			wantName:    "resp/memberJoinRequestEvent",
			wantOperate: 0,
		},
		{
			name:        "decline",
			verb:        func(b *Bot) error { return b.Decline(context.Background(), req, "no", false) },
			wantName:    "resp/memberJoinRequestEvent",
			wantOperate: 1,
		},
		{
			name:        "decline and ban",
			verb:        func(b *Bot) error { return b.Decline(context.Background(), req, "no", true) },
			wantName:    "resp/memberJoinRequestEvent",
			wantOperate: 3,
		},
		{
			name:        "ignore and ban",
			verb:        func(b *Bot) error { return b.Ignore(context.Background(), req, "", true) },
			wantName:    "resp/memberJoinRequestEvent",
			wantOperate: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, session := newFakeBot(t)
			if err := tt.verb(bot); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			call := session.calls[0]
			if call.name != tt.wantName {
				t.Errorf("command = %s", call.name)
			}
			if call.params["operate"] != tt.wantOperate {
				t.Errorf("operate = %v, want %d", call.params["operate"], tt.wantOperate)
			}
			if call.params["eventId"] != int64(5) || call.params["fromId"] != int64(6) || call.params["groupId"] != int64(7) {
				t.Errorf("request key params = %v", call.params)
			}
		})
	}
}

func TestFriendRequestBanMapsToTwo(t *testing.T) {
	bot, session := newFakeBot(t)
	req := &event.NewFriendRequestEvent{RequestKey: event.RequestKey{EventID: 1, FromID: 2}}

	if err := bot.Decline(context.Background(), req, "", true); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if session.calls[0].params["operate"] != 2 {
		t.Errorf("operate = %v, want 2", session.calls[0].params["operate"])
	}
}

func TestOnDispatchesTypedAndParentHandlers(t *testing.T) {
	bot := New(12345678, nil)

	var typed *event.FriendMessage
	var parentCalls int
	On(bot, 0, func(ctx context.Context, ev *event.FriendMessage) error {
		typed = ev
		return nil
	})
	OnType(bot, event.TypeMessageEvent, 0, func(ctx context.Context, ev event.Event) error {
		parentCalls++
		return nil
	})

	raw := json.RawMessage(`{"type":"FriendMessage","sender":{"id":1,"nickname":"a"},"messageChain":[{"type":"Source","id":0,"time":0},{"type":"Plain","text":"hi"}]}`)
	if err := bot.Bus().EmitRaw(context.Background(), raw); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if typed == nil {
		t.Fatal("typed handler not invoked")
	}
	if typed.Sender.ID != 1 || typed.MessageChain.String() != "hi" {
		t.Errorf("typed event = %+v", typed)
	}
	if parentCalls != 1 {
		t.Errorf("parent handler invoked %d times, want 1", parentCalls)
	}
}

func TestCallAPIWithoutSession(t *testing.T) {
	bot := New(12345678, nil)
	if _, err := bot.CallAPI(context.Background(), "about", api.MethodGet, nil); !errors.Is(err, adapter.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestGetGroupMemberScansList(t *testing.T) {
	bot, session := newFakeBot(t)
	session.resp = mustResponse(t, `{"code":0,"msg":"","data":[
		{"id":1,"memberName":"one","permission":"MEMBER","group":{"id":7,"name":"g","permission":"MEMBER"}},
		{"id":2,"memberName":"two","permission":"ADMINISTRATOR","group":{"id":7,"name":"g","permission":"MEMBER"}}
	]}`)

	member, err := bot.GetGroupMember(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("GetGroupMember: %v", err)
	}
	if member == nil || member.MemberName != "two" {
		t.Errorf("member = %+v", member)
	}

	missing, err := bot.GetGroupMember(context.Background(), 7, 3)
	if err != nil || missing != nil {
		t.Errorf("missing member = %+v, %v", missing, err)
	}
}

func mustResponse(t *testing.T, body string) *api.Response {
	t.Helper()
	resp, err := api.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	return resp
}

// httpGateway runs a fake gateway for end-to-end bot scenarios over
// the HTTP-poll adapter.
func httpGateway(t *testing.T, send http.HandlerFunc) *Bot {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"msg":""}`)
	})
	mux.HandleFunc("GET /countMessage", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"msg":"","data":0}`)
	})
	mux.HandleFunc("POST /sendFriendMessage", send)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	u, _ := url.Parse(ts.URL)
	port, _ := strconv.Atoi(u.Port())
	a, err := adapter.NewHTTP(adapter.HTTPConfig{VerifyKey: "secret", Host: u.Hostname(), Port: port})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	bot := New(12345678, a)
	bot.Subscribe(event.TypeEvent, 0, func(ctx context.Context, ev event.Event) error { return nil })
	if err := bot.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	t.Cleanup(func() { bot.Shutdown(context.Background()) })
	return bot
}

func TestFriendSendScenario(t *testing.T) {
	bot := httpGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["target"] != float64(22222222) {
			t.Errorf("target = %v", body["target"])
		}
		chain, _ := body["messageChain"].([]any)
		if len(chain) != 1 {
			t.Errorf("messageChain = %v", body["messageChain"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"msg":"","messageId":7}`)
	})

	id, err := bot.SendFriendMessage(context.Background(), 22222222, message.Text("hi"), 0)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != 7 {
		t.Errorf("messageId = %d, want 7", id)
	}
}

func TestGatewayErrorScenario(t *testing.T) {
	bot := httpGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":10,"msg":"no permission"}`)
	})

	_, err := bot.SendFriendMessage(context.Background(), 22222222, message.Text("hi"), 0)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 10 || apiErr.Msg != "no permission" {
		t.Errorf("err = %v, want gateway error 10 no permission", err)
	}
}
