package types

import (
	"fmt"
	"net"
	"sort"
	"strconv"
)

// ============================================================================
//                              Contact - 发现记录
// ============================================================================

// Location 节点网络位置
//
// 由发现后端在注册时附加。
type Location struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String 返回 host:port
func (l Location) String() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// Contact 发现后端中的域记录
//
// 对路由器而言 Contact 是不透明的，唯一被检查的字段是 Data：
// 传输协议名 → 对端通告的传输地址。
type Contact struct {
	// ID 域名
	ID string `json:"id"`

	// Data 传输协议名 → 传输地址
	Data map[string]string `json:"data,omitempty"`

	// Location 注册节点的网络位置
	Location *Location `json:"transport,omitempty"`
}

// Clone 深拷贝
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := &Contact{ID: c.ID}
	if c.Data != nil {
		out.Data = make(map[string]string, len(c.Data))
		for k, v := range c.Data {
			out.Data[k] = v
		}
	}
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	return out
}

// Schemes 返回对端通告的传输协议（已排序）
func (c *Contact) Schemes() []string {
	if c == nil {
		return nil
	}
	schemes := make([]string, 0, len(c.Data))
	for scheme := range c.Data {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// String 实现 fmt.Stringer
func (c *Contact) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.Location != nil {
		return fmt.Sprintf("%s@%s%v", c.ID, c.Location, c.Schemes())
	}
	return fmt.Sprintf("%s%v", c.ID, c.Schemes())
}
