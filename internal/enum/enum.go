package enum

// ── Order lines (stored inside the order document) ──

const (
	LineStatusPending = "pending"
	LineStatusReady   = "ready"
)

// ── Broadcast event kinds ──

const (
	EventOrderChanged   = "order-changed"
	EventOrderCompleted = "order-completed"
)

// ── Roles (JWT claim) ──

const (
	RoleManager  = "MANAGER"
	RoleWaiter   = "WAITER"
	RoleCook     = "COOK"
	RoleCustomer = "CUSTOMER"
)

// ── Relay drivers ──

const (
	RelayNone  = "none"
	RelayRedis = "redis"
	RelayAMQP  = "amqp"
)

// IsValidRole reports whether s is one of the known roles.
func IsValidRole(s string) bool {
	switch s {
	case RoleManager, RoleWaiter, RoleCook, RoleCustomer:
		return true
	}
	return false
}
