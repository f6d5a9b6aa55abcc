package mixer

import "slices"

// State 声道状态
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateFadingOut
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StateFadingOut:
		return "FadingOut"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

var validTransitions = map[State][]State{
	StateIdle:      {StatePlaying},
	StatePlaying:   {StatePlaying, StateFadingOut, StatePaused, StateIdle},
	StateFadingOut: {StatePlaying, StateIdle, StatePaused},
	StatePaused:    {StatePlaying, StateFadingOut, StateIdle},
}

// StateMachine 声道状态机；暂停时记住暂停前是否在淡出
type StateMachine struct {
	currentState State
	resumeTo     State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
	}
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(to State) bool {
	validTo, ok := validTransitions[sm.currentState]
	if !ok {
		return false
	}
	return slices.Contains(validTo, to)
}

// Transition 状态转换
func (sm *StateMachine) Transition(to State) bool {
	if !sm.CanTransition(to) {
		return false
	}
	if to == StatePaused {
		sm.resumeTo = sm.currentState
	}
	sm.currentState = to
	return true
}

// Resume 从暂停恢复到暂停前的状态
func (sm *StateMachine) Resume() bool {
	if sm.currentState != StatePaused {
		return false
	}
	sm.currentState = sm.resumeTo
	return true
}

// GetCurrentState 获取当前状态
func (sm *StateMachine) GetCurrentState() State {
	return sm.currentState
}
