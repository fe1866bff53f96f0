package dex

import "encoding/binary"

// Container is one decoded DEX file. Every index-addressed table is
// resolved to text; nothing in it refers back to the input buffer.
type Container struct {
	Header  Header   `json:"header"`
	Strings []string `json:"strings"`
	Types   []string `json:"types"`
	Protos  []Proto  `json:"protos"`
	Fields  []Field  `json:"fields"`
	Methods []Method `json:"methods"`
	Classes []Class  `json:"classes"`
}

// Proto is a resolved proto_id_item.
type Proto struct {
	Shorty     string   `json:"shorty"`
	ReturnType string   `json:"return_type"`
	Parameters []string `json:"parameters"`
}

// Field is a resolved field_id_item.
type Field struct {
	Class string `json:"class"`
	Type  string `json:"type"`
	Name  string `json:"name"`
}

// Method is a resolved method_id_item. Proto is a copy, not a reference
// into Container.Protos.
type Method struct {
	Class string `json:"class"`
	Proto Proto  `json:"proto"`
	Name  string `json:"name"`
}

// Class is a resolved class_def_item. Data is nil when the class has no
// class_data_item.
type Class struct {
	Name        string      `json:"name"`
	AccessFlags AccessFlags `json:"access_flags"`
	SuperClass  string      `json:"super_class"`
	SourceFile  string      `json:"sourcefile"`
	Data        *ClassData  `json:"cls_data,omitempty"`
}

// ClassData holds the four member lists of a class_data_item.
type ClassData struct {
	StaticFields   []EncodedField  `json:"static_fields"`
	InstanceFields []EncodedField  `json:"instance_fields"`
	DirectMethods  []EncodedMethod `json:"direct_methods"`
	VirtualMethods []EncodedMethod `json:"virtual_methods"`
}

// EncodedField is a field declared by a class. FieldIndex is the
// reconstructed index into Container.Fields.
type EncodedField struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	AccessFlags AccessFlags `json:"access_flags"`
	FieldIndex  uint32      `json:"field_idx"`
}

// EncodedMethod is a method declared by a class. Code is nil exactly when
// CodeOffset is zero.
type EncodedMethod struct {
	Name        string      `json:"name"`
	AccessFlags AccessFlags `json:"access_flags"`
	MethodIndex uint32      `json:"method_idx"`
	CodeOffset  uint32      `json:"code_off"`
	Code        *CodeItem   `json:"code,omitempty"`
}

// CodeItem is the header of a code_item plus its undecoded instructions.
type CodeItem struct {
	RegistersSize   uint16 `json:"registers_size"`
	InsSize         uint16 `json:"ins_size"`
	OutsSize        uint16 `json:"outs_size"`
	TriesSize       uint16 `json:"tries_size"`
	DebugInfoOffset uint32 `json:"debug_info_off"`
	RawInstructions []byte `json:"insns"`
}

// Words returns the instruction payload as little-endian 16-bit code
// units.
func (ci *CodeItem) Words() []uint16 {
	out := make([]uint16, len(ci.RawInstructions)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(ci.RawInstructions[2*i:])
	}
	return out
}

// Class returns the class definition with descriptor name, if any.
func (c *Container) Class(name string) (*Class, bool) {
	for i := range c.Classes {
		if c.Classes[i].Name == name {
			return &c.Classes[i], true
		}
	}
	return nil, false
}

// Stats counts entries per table.
type Stats struct {
	Strings int `json:"strings"`
	Types   int `json:"types"`
	Protos  int `json:"protos"`
	Fields  int `json:"fields"`
	Methods int `json:"methods"`
	Classes int `json:"classes"`
	Code    int `json:"code_items"`
}

func (c *Container) Stats() Stats {
	s := Stats{
		Strings: len(c.Strings),
		Types:   len(c.Types),
		Protos:  len(c.Protos),
		Fields:  len(c.Fields),
		Methods: len(c.Methods),
		Classes: len(c.Classes),
	}
	for _, cls := range c.Classes {
		if cls.Data == nil {
			continue
		}
		for _, list := range [][]EncodedMethod{cls.Data.DirectMethods, cls.Data.VirtualMethods} {
			for _, m := range list {
				if m.Code != nil {
					s.Code++
				}
			}
		}
	}
	return s
}
