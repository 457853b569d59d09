package remote

import "fmt"

// Node identifies one independently administered calendar server instance.
// Nodes are loaded once at startup from the registry file and never mutated.
type Node struct {
	ID            string
	Address       string
	AdminLogin    string
	AdminPassword string
}

// String renders the node without exposing the administrative credential.
func (n Node) String() string {
	return fmt.Sprintf("Node[id=%s, address=%s, adminLogin=%s, adminPassword=not displayed]", n.ID, n.Address, n.AdminLogin)
}
