package wire

import "fmt"

// Opcode identifies a request or event type. Requests are below 0x100,
// events at or above it.
type Opcode uint16

// DisplayObject is the fixed id of the connection's root object. Clients
// allocate every other object id.
const DisplayObject uint32 = 1

// Requests.
const (
	OpSync Opcode = iota + 1
	OpCreateSurface
	OpSurfaceDestroy
	OpSurfaceAttach
	OpSurfaceDamage
	OpSurfaceFrame
	OpSurfaceCommit
	OpSubsurface
	OpSubsurfacePosition
	OpGetToplevel
	OpToplevelDestroy
	OpToplevelSetTitle
	OpToplevelSetAppID
	OpToplevelAckConfigure
	OpToplevelMove
	OpToplevelResize
	OpGetPopup
	OpPopupDestroy
	OpPopupGrab
	OpPopupReposition
	OpSetCursor
	OpCreateDataSource
	OpDataSourceDestroy
	OpSetSelection
	OpStartDrag
	OpReceive
	OpSourceData
)

// Events.
const (
	EvError Opcode = iota + 0x100
	EvCallbackDone
	EvOutput
	EvOutputWithdrawn
	EvSeat
	EvKeyboardEnter
	EvKeyboardLeave
	EvKey
	EvModifiers
	EvPointerEnter
	EvPointerLeave
	EvPointerMotion
	EvPointerButton
	EvPointerAxis
	EvToplevelClosed
	EvSelection
	EvSelectionCleared
	EvSourceCancelled
	EvSourceSend
	EvOfferData
	EvDragEnter
	EvDragLeave
	EvDrop
)

var opcodeNames = map[Opcode]string{
	OpSync:                 "sync",
	OpCreateSurface:        "create_surface",
	OpSurfaceDestroy:       "surface.destroy",
	OpSurfaceAttach:        "surface.attach",
	OpSurfaceDamage:        "surface.damage",
	OpSurfaceFrame:         "surface.frame",
	OpSurfaceCommit:        "surface.commit",
	OpSubsurface:           "subsurface",
	OpSubsurfacePosition:   "subsurface.set_position",
	OpGetToplevel:          "get_toplevel",
	OpToplevelDestroy:      "toplevel.destroy",
	OpToplevelSetTitle:     "toplevel.set_title",
	OpToplevelSetAppID:     "toplevel.set_app_id",
	OpToplevelAckConfigure: "toplevel.ack_configure",
	OpToplevelMove:         "toplevel.move",
	OpToplevelResize:       "toplevel.resize",
	OpGetPopup:             "get_popup",
	OpPopupDestroy:         "popup.destroy",
	OpPopupGrab:            "popup.grab",
	OpPopupReposition:      "popup.reposition",
	OpSetCursor:            "pointer.set_cursor",
	OpCreateDataSource:     "create_data_source",
	OpDataSourceDestroy:    "data_source.destroy",
	OpSetSelection:         "set_selection",
	OpStartDrag:            "start_drag",
	OpReceive:              "offer.receive",
	OpSourceData:           "data_source.data",
	EvError:                "error",
	EvCallbackDone:         "callback.done",
	EvOutput:               "output",
	EvOutputWithdrawn:      "output.withdrawn",
	EvSeat:                 "seat",
	EvKeyboardEnter:        "keyboard.enter",
	EvKeyboardLeave:        "keyboard.leave",
	EvKey:                  "keyboard.key",
	EvModifiers:            "keyboard.modifiers",
	EvPointerEnter:         "pointer.enter",
	EvPointerLeave:         "pointer.leave",
	EvPointerMotion:        "pointer.motion",
	EvPointerButton:        "pointer.button",
	EvPointerAxis:          "pointer.axis",
	EvToplevelClosed:       "toplevel.closed",
	EvSelection:            "selection",
	EvSelectionCleared:     "selection.cleared",
	EvSourceCancelled:      "data_source.cancelled",
	EvSourceSend:           "data_source.send",
	EvOfferData:            "offer.data",
	EvDragEnter:            "drag.enter",
	EvDragLeave:            "drag.leave",
	EvDrop:                 "drag.drop",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%#x)", uint16(o))
}

// IsEvent reports whether o is a server-to-client opcode.
func (o Opcode) IsEvent() bool { return o >= EvError }

// Empty is the body of requests and events that carry no fields.
type Empty struct{}

// Sync asks for a CallbackDone on Callback once every earlier request was
// handled.
type Sync struct {
	Callback uint32 `cbor:"callback"`
}

type CreateSurface struct {
	ID uint32 `cbor:"id"`
}

// Buffer is pixel content in premultiplied RGBA, rows packed.
type Buffer struct {
	Width  int    `cbor:"width"`
	Height int    `cbor:"height"`
	Pixels []byte `cbor:"pixels"`
}

// Attach sets the pending buffer of the target surface. A nil Buffer detaches.
type Attach struct {
	Buffer *Buffer `cbor:"buffer,omitempty"`
}

type Damage struct {
	X      int `cbor:"x"`
	Y      int `cbor:"y"`
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}

type Frame struct {
	Callback uint32 `cbor:"callback"`
}

// Subsurface makes the target surface a child of Parent.
type Subsurface struct {
	Parent uint32 `cbor:"parent"`
	X      int    `cbor:"x"`
	Y      int    `cbor:"y"`
}

type Position struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

// GetToplevel gives the target surface the toplevel role as object ID.
type GetToplevel struct {
	ID uint32 `cbor:"id"`
}

type SetTitle struct {
	Title string `cbor:"title"`
}

type SetAppID struct {
	AppID string `cbor:"app_id"`
}

type AckConfigure struct {
	Serial uint32 `cbor:"serial"`
}

type Move struct {
	Serial uint32 `cbor:"serial"`
}

type Resize struct {
	Serial uint32 `cbor:"serial"`
	Edges  uint32 `cbor:"edges"`
}

// Positioner mirrors the popup placement rules.
type Positioner struct {
	Width        int    `cbor:"width"`
	Height       int    `cbor:"height"`
	AnchorX      int    `cbor:"anchor_x"`
	AnchorY      int    `cbor:"anchor_y"`
	AnchorWidth  int    `cbor:"anchor_width"`
	AnchorHeight int    `cbor:"anchor_height"`
	Anchor       uint32 `cbor:"anchor"`
	Gravity      uint32 `cbor:"gravity"`
	OffsetX      int    `cbor:"offset_x"`
	OffsetY      int    `cbor:"offset_y"`
	Reactive     bool   `cbor:"reactive,omitempty"`
}

// GetPopup gives the target surface the popup role as object ID.
type GetPopup struct {
	ID         uint32     `cbor:"id"`
	Parent     uint32     `cbor:"parent"`
	Positioner Positioner `cbor:"positioner"`
}

type Grab struct {
	Serial uint32 `cbor:"serial"`
}

type Reposition struct {
	Positioner Positioner `cbor:"positioner"`
	Token      uint32     `cbor:"token"`
}

// SetCursor sets the pointer image. Surface 0 with Hidden false selects a
// named cursor.
type SetCursor struct {
	Serial   uint32 `cbor:"serial"`
	Surface  uint32 `cbor:"surface,omitempty"`
	HotspotX int    `cbor:"hotspot_x,omitempty"`
	HotspotY int    `cbor:"hotspot_y,omitempty"`
	Hidden   bool   `cbor:"hidden,omitempty"`
	Name     string `cbor:"name,omitempty"`
}

type CreateDataSource struct {
	ID        uint32   `cbor:"id"`
	MimeTypes []string `cbor:"mime_types"`
}

// SetSelection sets Source as the selection. Source 0 clears it.
type SetSelection struct {
	Source uint32 `cbor:"source"`
	Serial uint32 `cbor:"serial"`
}

type StartDrag struct {
	Source uint32 `cbor:"source"`
	Origin uint32 `cbor:"origin"`
	Serial uint32 `cbor:"serial"`
}

type Receive struct {
	MimeType string `cbor:"mime_type"`
}

// SourceData answers a SourceSend event.
type SourceData struct {
	Transfer uint32 `cbor:"transfer"`
	Data     []byte `cbor:"data"`
}

// Error is a fatal protocol error. The connection is closed after it.
type Error struct {
	Object  uint32 `cbor:"object"`
	Code    uint32 `cbor:"code"`
	Message string `cbor:"message"`
}

type CallbackDone struct {
	Data uint32 `cbor:"data"`
}

type Output struct {
	Name      string `cbor:"name"`
	Make      string `cbor:"make"`
	Model     string `cbor:"model"`
	Width     int    `cbor:"width"`
	Height    int    `cbor:"height"`
	Refresh   int    `cbor:"refresh_mhz"`
	WidthMM   int    `cbor:"width_mm"`
	HeightMM  int    `cbor:"height_mm"`
	Subpixel  int    `cbor:"subpixel"`
	Transform string `cbor:"transform"`
	Scale     int    `cbor:"scale"`
	X         int    `cbor:"x"`
	Y         int    `cbor:"y"`
}

type Seat struct {
	Name         string   `cbor:"name"`
	Capabilities []string `cbor:"capabilities"`
	RepeatRate   int      `cbor:"repeat_rate"`
	RepeatDelay  int      `cbor:"repeat_delay"`
}

type KeyboardEnter struct {
	Surface uint32   `cbor:"surface"`
	Serial  uint32   `cbor:"serial"`
	Keys    []uint32 `cbor:"keys"`
}

type Leave struct {
	Surface uint32 `cbor:"surface"`
	Serial  uint32 `cbor:"serial"`
}

type Key struct {
	Serial uint32 `cbor:"serial"`
	Time   uint32 `cbor:"time"`
	Key    uint32 `cbor:"key"`
	State  uint32 `cbor:"state"`
}

type Modifiers struct {
	Serial uint32 `cbor:"serial"`
	Shift  bool   `cbor:"shift,omitempty"`
	Ctrl   bool   `cbor:"ctrl,omitempty"`
	Alt    bool   `cbor:"alt,omitempty"`
	Logo   bool   `cbor:"logo,omitempty"`
	Caps   bool   `cbor:"caps,omitempty"`
	Num    bool   `cbor:"num,omitempty"`
}

type PointerEnter struct {
	Surface uint32  `cbor:"surface"`
	Serial  uint32  `cbor:"serial"`
	X       float64 `cbor:"x"`
	Y       float64 `cbor:"y"`
}

type PointerMotion struct {
	Time uint32  `cbor:"time"`
	X    float64 `cbor:"x"`
	Y    float64 `cbor:"y"`
}

type PointerButton struct {
	Serial uint32 `cbor:"serial"`
	Time   uint32 `cbor:"time"`
	Button uint32 `cbor:"button"`
	State  uint32 `cbor:"state"`
}

type PointerAxis struct {
	Time       uint32  `cbor:"time"`
	Source     uint32  `cbor:"source"`
	Horizontal float64 `cbor:"horizontal"`
	Vertical   float64 `cbor:"vertical"`
}

// Selection offers the selection. Source is the compositor's handle for the
// offer, valid until SelectionCleared.
type Selection struct {
	Source    uint32   `cbor:"source"`
	MimeTypes []string `cbor:"mime_types"`
}

type SourceSend struct {
	Transfer uint32 `cbor:"transfer"`
	MimeType string `cbor:"mime_type"`
}

type OfferData struct {
	Transfer uint32 `cbor:"transfer"`
	MimeType string `cbor:"mime_type"`
	Data     []byte `cbor:"data"`
}

type DragEnter struct {
	Surface   uint32   `cbor:"surface"`
	MimeTypes []string `cbor:"mime_types"`
}

type Drop struct {
	MimeTypes []string `cbor:"mime_types"`
}
