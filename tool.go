package instruct

// BuildToolDescriptor wraps the compiled schema of rt into a function tool.
// An empty name or description falls back to the record's own.
func BuildToolDescriptor(rt RecordType, name, description string) (ToolDescriptor, error) {
	doc, err := CompileSchema(rt)
	if err != nil {
		return ToolDescriptor{}, err
	}

	if name == "" {
		name = rt.Name
	}
	if description == "" {
		description = rt.Description
	}

	return ToolDescriptor{
		Kind:        ToolKindFunction,
		Name:        name,
		Description: description,
		Parameters:  doc,
	}, nil
}

// ToolFor builds the descriptor of a record type under its own name and description.
func ToolFor(d Describer) (ToolDescriptor, error) {
	return BuildToolDescriptor(d.RecordType(), "", "")
}
