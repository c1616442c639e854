package wasmgen

// mangle renders the `[namespace]type::member` import/export name this
// pipeline uses, eliding the bracketed namespace when absent (spec.md §4.G,
// §9 open question 4: a convention of this pipeline, not a CLI standard).
func mangle(namespace, typeName, memberName string) string {
	if namespace == "" {
		return typeName + "::" + memberName
	}
	return "[" + namespace + "]" + typeName + "::" + memberName
}
