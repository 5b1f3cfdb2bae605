//go:build !wasm

package ormbase

import (
	"sort"

	"github.com/tinywasm/fmt"
)

// RelationInfo describes a one-to-many relation loader to generate.
type RelationInfo struct {
	ChildStruct string // e.g. "Order"
	FKField     string // e.g. "customerID" (Go field name)
	FKColumn    string // e.g. "customer_id" (column name)
	LoaderName  string // e.g. "ReadAllOrderByCustomerID"
}

// ResolveRelations turns every []Child field of a parent into a loader on
// the child. The child, or a model it embeds, must declare a ref= column
// pointing at the parent's table or at a table the parent inherits.
func (o *Ormc) ResolveRelations(all map[string]StructInfo) {
	var parentNames []string
	for parentName := range all {
		parentNames = append(parentNames, parentName)
	}
	sort.Strings(parentNames)

	for _, parentName := range parentNames {
		parentInfo := all[parentName]
		for _, sliceField := range parentInfo.SliceFields {
			childName := sliceField.ElemType
			childInfo, ok := all[childName]
			if !ok {
				o.log(fmt.Sprintf("Warning: relation field %s.%s points to unknown struct %s; skipping", parentName, sliceField.Name, childName))
				continue
			}

			fk := findFKField(all, childInfo, tableChain(all, parentInfo))
			if fk == nil {
				o.log(fmt.Sprintf("Warning: no ref=%s column in %s (from %s.%s); skipping relation loader", parentInfo.TableName, childName, parentName, sliceField.Name))
				continue
			}

			rel := RelationInfo{
				ChildStruct: childName,
				FKField:     fk.Name,
				FKColumn:    fk.ColumnName,
				LoaderName:  "ReadAll" + childName + "By" + exported(fk.Name),
			}
			if hasRelation(childInfo, rel.LoaderName) {
				continue
			}
			childInfo.Relations = append(childInfo.Relations, rel)
			all[childName] = childInfo
		}
	}
}

// tableChain lists info's table followed by the tables of the models it embeds.
func tableChain(all map[string]StructInfo, info StructInfo) []string {
	tables := []string{info.TableName}
	for seen := 0; info.Parent != "" && seen < len(all); seen++ {
		parent, ok := all[info.Parent]
		if !ok {
			break
		}
		tables = append(tables, parent.TableName)
		info = parent
	}
	return tables
}

// findFKField returns the first column of child, or of a model it embeds,
// whose ref= names one of tables.
func findFKField(all map[string]StructInfo, child StructInfo, tables []string) *FieldInfo {
	for seen := 0; seen <= len(all); seen++ {
		for _, table := range tables {
			for i := range child.Fields {
				if child.Fields[i].Ref == table {
					return &child.Fields[i]
				}
			}
		}
		parent, ok := all[child.Parent]
		if child.Parent == "" || !ok {
			return nil
		}
		child = parent
	}
	return nil
}

func hasRelation(info StructInfo, loader string) bool {
	for _, r := range info.Relations {
		if r.LoaderName == loader {
			return true
		}
	}
	return false
}
