package validation

// FormatTaxID renders 14 digits as XX.XXX.XXX/XXXX-XX. Anything else is returned unchanged.
func FormatTaxID(v string) string {
	d := Digits(v)
	if len(d) != 14 {
		return v
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// FormatPhone renders 10 or 11 digits as (XX) XXXX-XXXX or (XX) XXXXX-XXXX.
func FormatPhone(v string) string {
	d := Digits(v)
	switch len(d) {
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	default:
		return v
	}
}
