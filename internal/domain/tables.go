package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOprLog{},
	&Profile{},
	// Studio
	&Client{},
	&Car{},
	&Service{},
	&Order{},
}
