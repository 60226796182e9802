package reservation

// DefaultDDNS are ids handed out to sites reached through DDNS instead of a tunnel.
var DefaultDDNS = []int{2, 7, 14, 20, 26, 46, 62, 66, 70}

// DefaultStatic are ids whose LAN was set up by hand on the hub.
var DefaultStatic = []Static{
	{ID: 5, LAN: "172.16.100.26"},
	{ID: 8, LAN: "190.2.221.40:10554"},
	{ID: 19, LAN: "192.168.13.0/24"},
	{ID: 21, LAN: "201.193.161.165"},
	{ID: 22, LAN: "192.168.11.0/24"},
	{ID: 31, LAN: "177.93.6.24"},
	{ID: 38, LAN: "201.192.162.70:5554"},
	{ID: 63, LAN: "177.93.31.175"},
}

// Default returns the registry built from the compiled-in tables.
func Default() *Registry {
	r, err := New(DefaultDDNS, DefaultStatic)
	if err != nil {
		panic("reservation: bad default tables: " + err.Error())
	}
	return r
}
