package platform

import "github.com/go-gl/glfw/v3.3/glfw"

type Digital int

const (
	DIGITAL_LPAD_UP Digital = iota
	DIGITAL_LPAD_LEFT
	DIGITAL_LPAD_RIGHT
	DIGITAL_LPAD_DOWN
	DIGITAL_RPAD_UP
	DIGITAL_RPAD_LEFT
	DIGITAL_RPAD_RIGHT
	DIGITAL_RPAD_DOWN
	DIGITAL_MENU
	DIGITAL_ENTER_KEY
	DIGITAL_COUNT
)

type Analog int

const (
	ANALOG_L_X Analog = iota
	ANALOG_L_Y
	ANALOG_R_X
	ANALOG_R_Y
	ANALOG_MOUSE_X
	ANALOG_MOUSE_Y
	ANALOG_COUNT
)

// inputSource is the part of *glfw.Window that InputState polls.
type inputSource interface {
	GetKey(key glfw.Key) glfw.Action
	GetCursorPos() (x, y float64)
}

var digitalBindings = map[Digital]glfw.Key{
	DIGITAL_LPAD_UP:    glfw.KeyW,
	DIGITAL_LPAD_LEFT:  glfw.KeyA,
	DIGITAL_LPAD_RIGHT: glfw.KeyD,
	DIGITAL_LPAD_DOWN:  glfw.KeyS,
	DIGITAL_RPAD_UP:    glfw.KeyUp,
	DIGITAL_RPAD_LEFT:  glfw.KeyLeftShift,
	DIGITAL_RPAD_RIGHT: glfw.KeyRight,
	DIGITAL_RPAD_DOWN:  glfw.KeySpace,
	DIGITAL_MENU:       glfw.KeyEscape,
	DIGITAL_ENTER_KEY:  glfw.KeyEnter,
}

type inputSnapshot struct {
	digital [DIGITAL_COUNT]int32
	analog  [ANALOG_COUNT]float32
}

// InputState holds the current and previous polled input so callers can ask
// for edges as well as levels.
type InputState struct {
	current  inputSnapshot
	previous inputSnapshot
	source   inputSource
}

func NewInputState(source inputSource) *InputState {
	s := &InputState{source: source}
	// prime both snapshots so the first frame reports no deltas
	s.Update()
	s.previous = s.current
	return s
}

func (s *InputState) Update() {
	s.previous = s.current
	if s.source == nil {
		return
	}
	for id, key := range digitalBindings {
		if s.source.GetKey(key) == glfw.Press {
			s.current.digital[id] = 1
		} else {
			s.current.digital[id] = 0
		}
	}
	mx, my := s.source.GetCursorPos()
	s.current.analog[ANALOG_MOUSE_X] = float32(mx)
	s.current.analog[ANALOG_MOUSE_Y] = float32(my)
}

func (s *InputState) GetDigital(id Digital) int32 {
	return s.current.digital[id]
}

func (s *InputState) GetDigitalDelta(id Digital) int32 {
	return s.current.digital[id] - s.previous.digital[id]
}

func (s *InputState) GetAnalogDelta(id Analog) float32 {
	return s.current.analog[id] - s.previous.analog[id]
}

func (s *InputState) IsPressed(id Digital) bool {
	return s.GetDigitalDelta(id) > 0
}

func (s *InputState) IsReleased(id Digital) bool {
	return s.GetDigitalDelta(id) < 0
}

// ClearHistory makes the previous snapshot equal to the current one.
func (s *InputState) ClearHistory() {
	s.previous = s.current
}
