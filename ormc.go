//go:build !wasm

package ormbase

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/tinywasm/fmt"
)

// FieldInfo is one column declared by an `orm:"..."` struct tag.
type FieldInfo struct {
	Name        string // Go field name
	Accessor    string // exported accessor name, "" when it would shadow a Base method
	ColumnName  string
	Kind        Kind
	Constraints Constraint
	Length      int
	Precision   int // 0 = kind default
	Scale       int // -1 = kind default
	Choices     []string
	TypeChoices string // "1:Open|2:Closed"
	Ref         string
	RefColumn   string
	Default     string
	ReadOnly    bool
	GoType      string
}

// SliceFieldInfo records a slice-of-struct field found in a parent struct.
// Not mapped; used only for relation resolution.
type SliceFieldInfo struct {
	Name     string // e.g. "orders"
	ElemType string // e.g. "Order"
}

type StructInfo struct {
	Name        string
	TableName   string
	PackageName string
	Parent      string // embedded model struct; "" for roots
	Mode        Mode
	Immutable   bool
	Timestamp   bool
	Fields      []FieldInfo
	SourceFile  string
	SliceFields []SliceFieldInfo // populated by ParseStruct; used by ResolveRelations
	Relations   []RelationInfo   // populated by ResolveRelations; used by GenerateForFile
}

// reservedAccessors are promoted from Base and must not be shadowed.
var reservedAccessors = map[string]bool{
	"Meta": true, "Type": true, "Session": true, "ID": true, "Exists": true, "TypeID": true,
	"Get": true, "Set": true, "String": true, "Int": true, "Bool": true, "Decimal": true,
	"Time": true, "IsChanged": true, "IsEmpty": true, "ToMap": true, "Validate": true,
}

// ormTag returns the orm tag of a struct field, "" when absent.
func ormTag(field *ast.Field) string {
	if field.Tag == nil {
		return ""
	}
	raw := fmt.Convert(field.Tag.Value).TrimPrefix("`").TrimSuffix("`").String()
	return reflect.StructTag(raw).Get("orm")
}

// embeddedName returns the type name of an embedded field: "Base" for
// ormbase.Base, the struct name for a local type.
func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok && pkg.Name == "ormbase" && t.Sel.Name == "Base" {
			return "Base"
		}
	}
	return ""
}

func typeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok {
			return pkg.Name + "." + t.Sel.Name
		}
	case *ast.StarExpr:
		return typeString(t.X)
	}
	return ""
}

// isRecordStruct reports whether st embeds ormbase.Base or another struct.
func isRecordStruct(st *ast.StructType) bool {
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 && embeddedName(field.Type) != "" {
			return true
		}
	}
	return false
}

// ParseStruct parses a single struct from a Go file and returns its metadata.
func (o *Ormc) ParseStruct(structName string, goFile string) (StructInfo, error) {
	if structName == "" {
		return StructInfo{}, fmt.Err("Please provide a struct name")
	}

	if goFile == "" {
		return StructInfo{}, fmt.Err("goFile path cannot be empty")
	}

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
	if err != nil {
		return StructInfo{}, fmt.Err(err, "Failed to parse file")
	}

	var targetStruct *ast.StructType
	ast.Inspect(node, func(n ast.Node) bool {
		if typeSpec, ok := n.(*ast.TypeSpec); ok && typeSpec.Name.Name == structName {
			if structType, ok := typeSpec.Type.(*ast.StructType); ok {
				targetStruct = structType
				return false
			}
		}
		return true
	})
	if targetStruct == nil {
		return StructInfo{}, fmt.Err("Struct not found in file")
	}

	info := StructInfo{
		Name:        structName,
		TableName:   ToUnderscore(structName),
		PackageName: node.Name.Name,
	}

	embedsRecord := false
	pkFound := false
	for _, field := range targetStruct.Fields.List {
		tag := ormTag(field)
		if tag == "-" {
			continue
		}

		if len(field.Names) == 0 {
			name := embeddedName(field.Type)
			if name == "" {
				continue
			}
			if embedsRecord {
				return StructInfo{}, fmt.Err(structName, "embeds more than one record type")
			}
			embedsRecord = true
			if name != "Base" {
				info.Parent = name
			}
			if err := applyTypeTag(&info, tag); err != nil {
				return StructInfo{}, err
			}
			continue
		}

		fieldName := field.Names[0].Name

		if arr, ok := field.Type.(*ast.ArrayType); ok {
			elt := arr.Elt
			if star, ok := elt.(*ast.StarExpr); ok {
				elt = star.X
			}
			if id, ok := elt.(*ast.Ident); ok && id.Name != "byte" {
				info.SliceFields = append(info.SliceFields, SliceFieldInfo{Name: fieldName, ElemType: id.Name})
				continue // never a column
			}
		}
		if tag == "" {
			continue
		}

		f, err := parseFieldTag(structName, fieldName, typeString(field.Type), tag)
		if err != nil {
			return StructInfo{}, err
		}
		if f.Constraints.Has(ConstraintPK) {
			if pkFound {
				return StructInfo{}, fmt.Err(structName, "declares more than one primary key")
			}
			pkFound = true
		}
		if reservedAccessors[f.Accessor] {
			o.log(fmt.Sprintf("Warning: field %s.%s would shadow Base.%s; no accessor generated", structName, fieldName, f.Accessor))
			f.Accessor = ""
		}
		if ast.IsExported(fieldName) {
			o.log(fmt.Sprintf("Warning: field %s.%s is exported; declare columns lowercase to get accessors", structName, fieldName))
			f.Accessor = ""
		}
		info.Fields = append(info.Fields, f)
	}

	if !embedsRecord {
		return StructInfo{}, fmt.Err(structName, "does not embed ormbase.Base")
	}
	return info, nil
}

// applyTypeTag reads the options tagged on the embedded Base or parent.
func applyTypeTag(info *StructInfo, tag string) error {
	if tag == "" {
		return nil
	}
	for _, p := range fmt.Convert(tag).Split(",") {
		switch {
		case p == "immutable":
			info.Immutable = true
		case p == "timestamp":
			info.Timestamp = true
		case p == "polymorphic=single":
			info.Mode = Single
		case p == "polymorphic=join":
			info.Mode = Join
		default:
			return fmt.Err(info.Name, "unknown type option", p)
		}
	}
	return nil
}

func exported(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// parseFieldTag reads kind=,len=,precision=,scale=,choices=,types=,ref=,
// default=,pk,not_null,unique,index,readonly.
func parseFieldTag(structName, fieldName, goType, tag string) (FieldInfo, error) {
	f := FieldInfo{
		Name:       fieldName,
		Accessor:   exported(fieldName),
		ColumnName: ToUnderscore(fieldName),
		Scale:      -1,
		GoType:     goType,
	}
	kindSet := false
	for _, p := range fmt.Convert(tag).Split(",") {
		key, val, hasVal := strings.Cut(p, "=")
		var err error
		switch {
		case key == "kind" && hasVal:
			k, ok := ParseKind(val)
			if !ok {
				return f, fmt.Err(structName+"."+fieldName, "unknown kind", val)
			}
			f.Kind, kindSet = k, true
		case key == "len" && hasVal:
			f.Length, err = strconv.Atoi(val)
		case key == "precision" && hasVal:
			f.Precision, err = strconv.Atoi(val)
		case key == "scale" && hasVal:
			f.Scale, err = strconv.Atoi(val)
		case key == "choices" && hasVal:
			f.Choices = fmt.Convert(val).Split("|")
		case key == "types" && hasVal:
			f.TypeChoices = val
		case key == "ref" && hasVal:
			f.Ref, f.RefColumn, _ = strings.Cut(val, ":")
		case key == "default" && hasVal:
			f.Default = val
		case p == "pk":
			f.Constraints |= ConstraintPK | ConstraintNotNull
		case p == "not_null":
			f.Constraints |= ConstraintNotNull
		case p == "unique":
			f.Constraints |= ConstraintUnique
		case p == "index":
			f.Constraints |= ConstraintIndex
		case p == "readonly":
			f.ReadOnly = true
		case p == "":
		default:
			return f, fmt.Err(structName+"."+fieldName, "unknown tag option", p)
		}
		if err != nil {
			return f, fmt.Err(structName+"."+fieldName, "invalid number in", p)
		}
	}

	if !kindSet {
		k, ok := inferKind(goType, f)
		if !ok {
			return f, fmt.Err(structName+"."+fieldName, "cannot infer a kind for type", goType)
		}
		f.Kind = k
	}
	switch {
	case f.Kind == KindEnum && len(f.Choices) == 0:
		return f, fmt.Err(structName+"."+fieldName, "enum needs choices=")
	case f.Kind == KindType && f.TypeChoices == "":
		return f, fmt.Err(structName+"."+fieldName, "type needs types=")
	}
	return f, nil
}

func inferKind(goType string, f FieldInfo) (Kind, bool) {
	if f.Ref != "" {
		return KindObjectID, true
	}
	switch goType {
	case "string":
		if f.Length > 0 {
			return KindUnicode, true
		}
		return KindUnicodeText, true
	case "int", "int32", "int64", "uint", "uint32", "uint64":
		return KindInteger, true
	case "bool":
		return KindBoolean, true
	case "float32", "float64", "decimal.Decimal":
		return KindDecimal, true
	case "time.Time":
		return KindDateTime, true
	}
	return 0, false
}

// GenerateForStruct reads the Go File and generates the registration code for a given struct name.
func (o *Ormc) GenerateForStruct(structName string, goFile string) error {
	info, err := o.ParseStruct(structName, goFile)
	if err != nil {
		return err
	}
	return o.GenerateForFile([]StructInfo{info}, goFile)
}

// valueType is the Go type an accessor of kind k returns, and the Base
// getter producing it.
func valueType(k Kind) (goType, getter string) {
	switch k {
	case KindInteger, KindBigInteger, KindObjectID, KindType:
		return "int64", "Int"
	case KindDecimal, KindCurrency:
		return "decimal.Decimal", "Decimal"
	case KindDate, KindTime, KindDateTime:
		return "time.Time", "Time"
	case KindBoolean:
		return "bool", "Bool"
	}
	return "string", "String"
}

// typeExpr renders the ColumnType constructor call for f.
func typeExpr(f FieldInfo) string {
	var opts []string
	if f.Precision > 0 {
		opts = append(opts, "ormbase.Precision("+strconv.Itoa(f.Precision)+")")
	}
	if f.Scale >= 0 {
		opts = append(opts, "ormbase.Scale("+strconv.Itoa(f.Scale)+")")
	}
	tail := ""
	if len(opts) > 0 {
		tail = fmt.Convert(opts).Join(", ").String()
	}
	withArgs := func(args ...string) string {
		all := append(args, opts...)
		return fmt.Convert(all).Join(", ").String()
	}

	switch f.Kind {
	case KindInteger:
		return "ormbase.Integer(" + tail + ")"
	case KindBigInteger:
		return "ormbase.BigInteger(" + tail + ")"
	case KindObjectID:
		return "ormbase.ObjectID(" + tail + ")"
	case KindDecimal:
		return "ormbase.Decimal(" + tail + ")"
	case KindCurrency:
		return "ormbase.Currency(" + tail + ")"
	case KindUnicode:
		return "ormbase.Unicode(" + withArgs(strconv.Itoa(f.Length)) + ")"
	case KindUnicodeText:
		return "ormbase.UnicodeText(" + tail + ")"
	case KindEnum:
		quoted := make([]string, len(f.Choices))
		for i, c := range f.Choices {
			quoted[i] = strconv.Quote(c)
		}
		choices := "[]string{" + fmt.Convert(quoted).Join(", ").String() + "}"
		return "ormbase.Enum(" + withArgs(choices, strconv.Itoa(f.Length)) + ")"
	case KindType:
		var entries []string
		for _, pair := range fmt.Convert(f.TypeChoices).Split("|") {
			n, label, _ := strings.Cut(pair, ":")
			entries = append(entries, n+": "+strconv.Quote(label))
		}
		return "ormbase.Type(" + withArgs("map[int64]string{"+fmt.Convert(entries).Join(", ").String()+"}") + ")"
	case KindDate:
		return "ormbase.Date(" + tail + ")"
	case KindTime:
		return "ormbase.Time(" + tail + ")"
	case KindDateTime:
		return "ormbase.DateTime(" + tail + ")"
	case KindBoolean:
		return "ormbase.Boolean(" + tail + ")"
	case KindPhoneNumber:
		return "ormbase.PhoneNumber(" + tail + ")"
	case KindPhoneExt:
		return "ormbase.PhoneExt(" + tail + ")"
	case KindEmail:
		return "ormbase.Email(" + tail + ")"
	case KindZipCode5:
		return "ormbase.ZipCode5(" + tail + ")"
	case KindZipCodeExt:
		return "ormbase.ZipCodeExt(" + tail + ")"
	}
	return "ormbase.UnicodeText(" + tail + ")"
}

// defaultExpr renders default= as a Go value of the column's kind.
func defaultExpr(f FieldInfo) string {
	switch {
	case f.Default == "utcnow":
		return "ormbase.UTCNow"
	case f.Default == "null":
		return "nil"
	}
	goType, _ := valueType(f.Kind)
	switch goType {
	case "int64", "decimal.Decimal", "bool":
		return f.Default
	}
	return strconv.Quote(f.Default)
}

// columnExpr renders the ormbase.Col declaration for f.
func columnExpr(f FieldInfo) string {
	args := []string{strconv.Quote(f.ColumnName), typeExpr(f)}
	if f.Constraints.Has(ConstraintPK) {
		args = append(args, "ormbase.PrimaryKey()")
	} else if f.Constraints.Has(ConstraintNotNull) {
		args = append(args, "ormbase.NotNull()")
	}
	if f.Ref != "" {
		refCol := f.RefColumn
		if refCol == "" {
			refCol = "id"
		}
		args = append(args, "ormbase.ForeignKey("+strconv.Quote(f.Ref+"."+refCol)+")")
	}
	if f.Default != "" {
		args = append(args, "ormbase.Default("+defaultExpr(f)+")")
	}
	if f.Constraints.Has(ConstraintIndex) {
		args = append(args, "ormbase.Index()")
	}
	if f.Constraints.Has(ConstraintUnique) {
		args = append(args, "ormbase.Unique()")
	}
	return "ormbase.Col(" + fmt.Convert(args).Join(", ").String() + ")"
}

// registrationOrder sorts infos so parents declared in the same file come first.
func registrationOrder(infos []StructInfo) []StructInfo {
	byName := make(map[string]StructInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}
	depth := func(info StructInfo) int {
		d := 0
		for p, ok := byName[info.Parent]; ok && d <= len(infos); p, ok = byName[p.Parent] {
			d++
		}
		return d
	}
	out := append([]StructInfo(nil), infos...)
	sort.SliceStable(out, func(i, j int) bool { return depth(out[i]) < depth(out[j]) })
	return out
}

// GenerateForFile writes the registration code for all infos into one file.
func (o *Ormc) GenerateForFile(infos []StructInfo, sourceFile string) error {
	if len(infos) == 0 {
		return nil
	}
	infos = registrationOrder(infos)
	buf := fmt.Convert()

	needTime, needDecimal := false, false
	for _, info := range infos {
		for _, f := range info.Fields {
			if f.Accessor == "" {
				continue
			}
			switch t, _ := valueType(f.Kind); t {
			case "time.Time":
				needTime = true
			case "decimal.Decimal":
				needDecimal = true
			}
		}
	}

	// File Header
	buf.Write("// Code generated by ormc; DO NOT EDIT.\n")
	buf.Write(fmt.Sprintf("package %s\n\n", infos[0].PackageName))

	buf.Write("import (\n")
	if needTime {
		buf.Write("\t\"time\"\n\n")
	}
	if needDecimal {
		buf.Write("\t\"github.com/shopspring/decimal\"\n")
	}
	buf.Write("\t\"github.com/tinywasm/ormbase\"\n")
	buf.Write(")\n\n")

	buf.Write("// RegisterModels registers every model of this file, parents first.\n")
	buf.Write("func RegisterModels(reg *ormbase.Registry) error {\n")
	for _, info := range infos {
		buf.Write(fmt.Sprintf("\tif _, err := Register%s(reg); err != nil {\n\t\treturn err\n\t}\n", info.Name))
	}
	buf.Write("\treturn nil\n}\n\n")

	emit := func(code string) { buf.Write(code) }
	for _, info := range infos {
		o.writeRegistration(emit, info)
		o.writeAccessors(emit, info)
		for _, rel := range info.Relations {
			buf.Write(fmt.Sprintf(
				"// %s loads the %s records whose %s is parentID.\n"+
					"func %s(s *ormbase.Session, parentID int64) ([]*%s, error) {\n"+
					"\trs, err := ormbase.CreateFactory(%sType, %s).All(s, parentID)\n"+
					"\tif err != nil {\n\t\treturn nil, err\n\t}\n"+
					"\tout := make([]*%s, 0, len(rs))\n"+
					"\tfor _, r := range rs {\n"+
					"\t\tif m, ok := r.(*%s); ok {\n\t\t\tout = append(out, m)\n\t\t}\n\t}\n"+
					"\treturn out, nil\n"+
					"}\n\n",
				rel.LoaderName, rel.ChildStruct, rel.FKColumn,
				rel.LoaderName, rel.ChildStruct,
				rel.ChildStruct, strconv.Quote(rel.FKColumn),
				rel.ChildStruct,
				rel.ChildStruct,
			))
		}
	}

	outName := fmt.Convert(sourceFile).TrimSuffix(".go").String() + "_orm.go"
	return os.WriteFile(outName, buf.Bytes(), 0644)
}

func (o *Ormc) writeRegistration(emit func(string), info StructInfo) {
	emit(fmt.Sprintf("// %sType is set by Register%s.\n", info.Name, info.Name))
	emit(fmt.Sprintf("var %sType *ormbase.RecordType\n\n", info.Name))

	emit(fmt.Sprintf("// Register%s resolves %s (table %s) in reg.\n", info.Name, info.Name, info.TableName))
	emit(fmt.Sprintf("func Register%s(reg *ormbase.Registry) (*ormbase.RecordType, error) {\n", info.Name))
	emit("\trt, err := reg.Register(ormbase.TypeDef{\n")
	emit("\t\tName: " + strconv.Quote(info.Name) + ",\n")

	var extends []string
	if info.Parent != "" {
		extends = append(extends, info.Parent+"Type")
	}
	if info.Timestamp {
		extends = append(extends, "ormbase.Timestamp")
	}
	if len(extends) > 0 {
		emit("\t\tExtends: []ormbase.Inheritable{" + fmt.Convert(extends).Join(", ").String() + "},\n")
	}
	switch info.Mode {
	case Single:
		emit("\t\tPolymorphic: ormbase.Single,\n")
	case Join:
		emit("\t\tPolymorphic: ormbase.Join,\n")
	}
	if info.Immutable {
		emit("\t\tImmutable: true,\n")
	}
	var readOnly []string
	for _, f := range info.Fields {
		if f.ReadOnly {
			readOnly = append(readOnly, strconv.Quote(f.ColumnName))
		}
	}
	if len(readOnly) > 0 {
		emit("\t\tReadOnly: []string{" + fmt.Convert(readOnly).Join(", ").String() + "},\n")
	}
	if len(info.Fields) > 0 {
		emit("\t\tColumns: []ormbase.ColumnDef{\n")
		for _, f := range info.Fields {
			emit("\t\t\t" + columnExpr(f) + ",\n")
		}
		emit("\t\t},\n")
	}
	emit(fmt.Sprintf("\t\tNew: func() ormbase.Record { return &%s{} },\n", info.Name))
	emit("\t})\n")
	emit("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	emit(fmt.Sprintf("\t%sType = rt\n", info.Name))
	emit("\treturn rt, nil\n}\n\n")
}

func (o *Ormc) writeAccessors(emit func(string), info StructInfo) {
	for _, f := range info.Fields {
		if f.Accessor == "" {
			continue
		}
		goType, getter := valueType(f.Kind)
		emit(fmt.Sprintf("func (m *%s) %s() %s { return m.%s(%s) }\n\n", info.Name, f.Accessor, goType, getter, strconv.Quote(f.ColumnName)))
		name := f.ColumnName
		if f.ReadOnly {
			name = "__" + name + "__"
		}
		emit(fmt.Sprintf("func (m *%s) Set%s(v %s) error { return m.Set(%s, v) }\n\n", info.Name, f.Accessor, goType, strconv.Quote(name)))
	}
}

// collectAllStructs walks rootDir and returns a map of all parsed StructInfo
// keyed by struct name. Used by Run() Pass 1.
func (o *Ormc) collectAllStructs() (map[string]StructInfo, []string, []string, error) {
	all := make(map[string]StructInfo)
	var structOrder []string
	var fileOrder []string
	fileSeen := make(map[string]bool)

	err := filepath.Walk(o.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			dirName := info.Name()
			if dirName == "vendor" || dirName == ".git" || dirName == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}

		fileName := info.Name()
		if fileName != "model.go" && fileName != "models.go" {
			return nil
		}
		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil // Skip unparseable files
		}

		for _, decl := range node.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}
			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := typeSpec.Type.(*ast.StructType)
				if !ok || !isRecordStruct(st) {
					continue
				}
				info, err := o.ParseStruct(typeSpec.Name.Name, path)
				if err != nil {
					o.log(fmt.Sprintf("Skipping %s in %s: %v", typeSpec.Name.Name, path, err))
					continue
				}
				info.SourceFile = path
				all[info.Name] = info
				structOrder = append(structOrder, info.Name)
				if !fileSeen[path] {
					fileSeen[path] = true
					fileOrder = append(fileOrder, path)
				}
			}
		}
		return nil
	})

	return all, structOrder, fileOrder, err
}

// dropOrphans removes subtypes whose embedded parent is not a model.
func (o *Ormc) dropOrphans(all map[string]StructInfo, structOrder []string) []string {
	var kept []string
	for _, name := range structOrder {
		info := all[name]
		if info.Parent != "" {
			if _, ok := all[info.Parent]; !ok {
				o.log(fmt.Sprintf("Warning: %s embeds %s, which is not a model; skipping", name, info.Parent))
				delete(all, name)
				continue
			}
		}
		kept = append(kept, name)
	}
	return kept
}

// generateAll groups the enriched all map by source file path and calls
// GenerateForFile once per file.
func (o *Ormc) generateAll(all map[string]StructInfo, structOrder []string, fileOrder []string) error {
	byFile := make(map[string][]StructInfo)
	for _, structName := range structOrder {
		info := all[structName]
		byFile[info.SourceFile] = append(byFile[info.SourceFile], info)
	}

	for _, sourceFile := range fileOrder {
		infos := byFile[sourceFile]
		if len(infos) > 0 {
			if err := o.GenerateForFile(infos, sourceFile); err != nil {
				o.log(fmt.Sprintf("Failed to write output for %s: %v", sourceFile, err))
			}
		}
	}
	return nil
}

// Run is the entry point for the CLI tool.
func (o *Ormc) Run() error {
	// Pass 1: collect all record structs across all model files
	all, structOrder, fileOrder, err := o.collectAllStructs()
	if err != nil {
		return fmt.Err(err, "error walking directory")
	}
	structOrder = o.dropOrphans(all, structOrder)
	if len(all) == 0 {
		return fmt.Err("no models found")
	}

	// Pass 2: resolve cross-struct relations
	o.ResolveRelations(all)

	// Pass 3: generate (group by source file, call GenerateForFile once per file)
	return o.generateAll(all, structOrder, fileOrder)
}
