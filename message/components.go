package message

import (
	"encoding/json"
	"fmt"
)

// Source carries the id and timestamp of a received message. It only
// ever appears at the head of a wire-form chain and is exposed through
// Chain.Source rather than iterated.
type Source struct {
	ID   int64 `json:"id"`
	Time int64 `json:"time"`
}

func (*Source) Type() string { return "Source" }
func (*Source) String() string { return "" }
func (*Source) AsMiraiCode() string { return "" }

// Quote is the reply-target metadata of a message. Like Source it is
// head-only and exposed through Chain.Quote.
type Quote struct {
	ID       int64 `json:"id"`
	GroupID  int64 `json:"groupId"`
	SenderID int64 `json:"senderId"`
	TargetID int64 `json:"targetId"`
	Origin   Chain `json:"origin"`
}

func (*Quote) Type() string { return "Quote" }
func (*Quote) String() string { return "" }
func (*Quote) AsMiraiCode() string { return "" }

// Plain is a run of plain text.
type Plain struct {
	Text string `json:"text"`
}

func (*Plain) Type() string { return "Plain" }
func (p *Plain) String() string { return p.Text }
func (p *Plain) AsMiraiCode() string { return Serialize(p.Text) }

// At mentions a group member.
type At struct {
	Target int64 `json:"target"`
	// Display is filled by the gateway on received messages; it is
	// ignored when sending.
	Display string `json:"display,omitempty"`
}

func (*At) Type() string { return "At" }
func (a *At) String() string {
	if a.Display != "" {
		return "@" + a.Display
	}
	return fmt.Sprintf("@%d", a.Target)
}
func (a *At) AsMiraiCode() string { return fmt.Sprintf("[mirai:at:%d]", a.Target) }

// AtAll mentions every member of a group.
type AtAll struct{}

func (*AtAll) Type() string { return "AtAll" }
func (*AtAll) String() string { return "@全体成员" }
func (*AtAll) AsMiraiCode() string { return "[mirai:atall]" }

// Face is a built-in emoticon, addressed by id or name.
type Face struct {
	FaceID int   `json:"faceId,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (*Face) Type() string { return "Face" }
func (f *Face) String() string {
	if f.Name != "" {
		return "[" + f.Name + "]"
	}
	return "[表情]"
}
func (f *Face) AsMiraiCode() string { return fmt.Sprintf("[mirai:face:%d]", f.FaceID) }

// Image is a picture, referenced by gateway image id, URL, or a local
// path or base64 payload when sending.
type Image struct {
	ImageID string `json:"imageId,omitempty"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	Base64  string `json:"base64,omitempty"`
}

func (*Image) Type() string { return "Image" }
func (*Image) String() string { return "[图片]" }
func (i *Image) AsMiraiCode() string { return fmt.Sprintf("[mirai:image:%s]", i.ImageID) }

// FlashImage is a view-once picture.
type FlashImage struct {
	ImageID string `json:"imageId,omitempty"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	Base64  string `json:"base64,omitempty"`
}

func (*FlashImage) Type() string { return "FlashImage" }
func (*FlashImage) String() string { return "[闪照]" }
func (f *FlashImage) AsMiraiCode() string { return fmt.Sprintf("[mirai:flash:%s]", f.ImageID) }

// AsImage converts the flash image to a regular Image component.
func (f *FlashImage) AsImage() *Image {
	return &Image{ImageID: f.ImageID, URL: f.URL, Path: f.Path, Base64: f.Base64}
}

// Voice is an audio message.
type Voice struct {
	VoiceID string `json:"voiceId,omitempty"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	Base64  string `json:"base64,omitempty"`
	// Length is the duration in seconds, filled by the gateway.
	Length int `json:"length,omitempty"`
}

func (*Voice) Type() string { return "Voice" }
func (*Voice) String() string { return "[语音]" }
func (*Voice) AsMiraiCode() string { return "" }

// Xml is a raw XML card message.
type Xml struct {
	XML string `json:"xml"`
}

func (*Xml) Type() string { return "Xml" }
func (x *Xml) String() string { return x.XML }
func (*Xml) AsMiraiCode() string { return "" }

// JSON is a raw JSON card message. The wire discriminator is "Json".
type JSON struct {
	JSON string `json:"json"`
}

func (*JSON) Type() string { return "Json" }
func (j *JSON) String() string { return j.JSON }
func (*JSON) AsMiraiCode() string { return "" }

// App is a mini-program card message.
type App struct {
	Content string `json:"content"`
}

func (*App) Type() string { return "App" }
func (a *App) String() string { return a.Content }
func (a *App) AsMiraiCode() string { return fmt.Sprintf("[mirai:app:%s]", Serialize(a.Content)) }

// Poke is a themed nudge inside a message.
type Poke struct {
	Name string `json:"name"`
}

// Known poke names.
const (
	PokeChuoYiChuo = "ChuoYiChuo"
	PokeBiXin      = "BiXin"
	PokeDianZan    = "DianZan"
	PokeXinSui     = "XinSui"
	PokeLiuLiuLiu  = "LiuLiuLiu"
	PokeFangDaZhao = "FangDaZhao"
)

func (*Poke) Type() string { return "Poke" }
func (p *Poke) String() string { return "[" + p.Name + "]" }
func (p *Poke) AsMiraiCode() string { return fmt.Sprintf("[mirai:poke:%s]", p.Name) }

// Dice is a dice roll with a fixed value.
type Dice struct {
	Value int `json:"value"`
}

func (*Dice) Type() string { return "Dice" }
func (d *Dice) String() string { return fmt.Sprintf("[骰子%d]", d.Value) }
func (d *Dice) AsMiraiCode() string { return fmt.Sprintf("[mirai:dice:%d]", d.Value) }

// MusicShareKind is the source platform of a music share card.
type MusicShareKind string

const (
	MusicNeteaseCloudMusic MusicShareKind = "NeteaseCloudMusic"
	MusicQQMusic           MusicShareKind = "QQMusic"
	MusicMiguMusic         MusicShareKind = "MiguMusic"
	MusicKugouMusic        MusicShareKind = "KugouMusic"
	MusicKuwoMusic         MusicShareKind = "KuwoMusic"
)

// MusicShare is a music card message.
type MusicShare struct {
	Kind       MusicShareKind `json:"kind"`
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	JumpURL    string         `json:"jumpUrl"`
	PictureURL string         `json:"pictureUrl"`
	MusicURL   string         `json:"musicUrl"`
	Brief      string         `json:"brief,omitempty"`
}

func (*MusicShare) Type() string { return "MusicShare" }
func (m *MusicShare) String() string { return m.Brief }
func (*MusicShare) AsMiraiCode() string { return "" }

// ForwardNode is one message inside a forwarded bundle.
type ForwardNode struct {
	SenderID   int64  `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Chain      Chain  `json:"messageChain,omitempty"`
	MessageID  int64  `json:"messageId,omitempty"`
	Time       int64  `json:"time,omitempty"`
}

// Forward is a bundle of forwarded messages.
type Forward struct {
	NodeList []ForwardNode `json:"nodeList"`
}

func (*Forward) Type() string { return "Forward" }
func (*Forward) String() string { return "[聊天记录]" }
func (*Forward) AsMiraiCode() string { return "" }

// File references a file in group file storage.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (*File) Type() string { return "File" }
func (f *File) String() string { return "[文件]" + f.Name }
func (*File) AsMiraiCode() string { return "" }

// MiraiCode is a pre-rendered mirai-code string sent verbatim.
type MiraiCode struct {
	Code string `json:"code"`
}

func (*MiraiCode) Type() string { return "MiraiCode" }
func (m *MiraiCode) String() string { return m.Code }
func (m *MiraiCode) AsMiraiCode() string { return m.Code }

// Unknown preserves a component whose discriminator this SDK does not
// recognize. The raw wire form is kept so it can be round-tripped.
type Unknown struct {
	Kind string          `json:"-"`
	Raw  json.RawMessage `json:"-"`
}

func (u *Unknown) Type() string {
	if u.Kind != "" {
		return u.Kind
	}
	return "Unknown"
}
func (*Unknown) String() string { return "" }
func (*Unknown) AsMiraiCode() string { return "" }
