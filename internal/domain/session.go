package domain

// SessionState состояние оформляемого заказа
type SessionState string

const (
	SessionBuilding   SessionState = "Building"
	SessionValidating SessionState = "Validating"
	SessionCommitting SessionState = "Committing"
	SessionCommitted  SessionState = "Committed"
	SessionFailed     SessionState = "Failed"
	SessionRolledBack SessionState = "RolledBack"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionBuilding:   {SessionValidating},
	SessionValidating: {SessionCommitting, SessionFailed},
	SessionCommitting: {SessionCommitted, SessionRolledBack},
	SessionCommitted:  {SessionBuilding},
	SessionFailed:     {SessionBuilding},
	SessionRolledBack: {SessionBuilding},
}

// CanTransitionTo проверяет допустимость перехода между состояниями
func CanTransitionTo(from, to SessionState) bool {
	for _, s := range sessionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal true для исходов попытки фиксации
func (s SessionState) IsTerminal() bool {
	return s == SessionCommitted || s == SessionFailed || s == SessionRolledBack
}

func (s SessionState) String() string {
	return string(s)
}
