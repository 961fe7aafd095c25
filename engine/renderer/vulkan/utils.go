package vulkan

// terminatedStrings null-terminates each string for handoff to the C API.
func terminatedStrings(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v + "\x00"
	}
	return out
}
