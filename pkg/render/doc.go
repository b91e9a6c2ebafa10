// Package render writes relational objects as plain-text tables for terminal output.
//
// List produces one row per object; Object produces a detailed view with properties,
// columns, and the object's definition where it has one. Headings and labels are styled
// with github.com/fatih/color unless Options.NoColor is set.
//
// Usage:
//
//	tables, err := relational.Collect(db.Tables().All(ctx))
//	if err != nil {
//		return err
//	}
//
//	objs := make([]relational.Object, len(tables))
//	for i, t := range tables {
//		objs[i] = t
//	}
//
//	err = render.List(os.Stdout, render.Defaults, objs...)
package render
