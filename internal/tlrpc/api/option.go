package api

import "github.com/flemzord/tgbridge/internal/tlrpc"

// GetOption reads a TDLib option. Sending it to a fresh client also makes
// TDLib start that client and emit its first authorization state.
type GetOption struct {
	Name string
}

func (*GetOption) TypeName() string { return "getOption" }

func (r *GetOption) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("name", &r.Name)}
}

// OptionValueString is the reply to GetOption for string options such as
// "version".
type OptionValueString struct {
	Value string
}

func (*OptionValueString) TypeName() string { return "optionValueString" }

func (v *OptionValueString) Fields() []tlrpc.Field {
	return []tlrpc.Field{tlrpc.String("value", &v.Value)}
}
