package todo

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// view is the data a page render reads.
type view struct {
	State   string
	Counter int
	Layout  string
	Sort    string
	Filter  Filter
	Total   int
	Items   []Item
}

func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Page is the whole app: toolbar, state line, cards and footer.
func Page(v view) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<header><h1>Reactive FSM Test</h1></header><div class="item-app">`); err != nil {
			return err
		}
		for _, c := range []templ.Component{
			Toolbar(v.Layout, v.Sort),
			StateInfo(v.State, v.Total, v.Filter),
			Cards(v.Items),
		} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return write(w, `</div><footer><div>Visits: `, strconv.Itoa(v.Counter), `</div></footer>`)
	})
}

func Toolbar(layout, sort string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			`<div class="toolbar">`,
			`<button data-action="addItem">+</button>`,
			`<button data-action="layout">`, templ.EscapeString(layout), `</button>`,
			`<button data-action="sort">`, templ.EscapeString(sort), `</button>`,
			`</div>`,
		)
	})
}

func StateInfo(state string, total int, filter Filter) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			`<div class="state-info">`,
			`<strong>State:</strong> `, templ.EscapeString(state),
			` | <strong>Items:</strong> `, strconv.Itoa(total), ` total`,
			` | <strong>Filter:</strong> `, templ.EscapeString(string(filter)),
			`</div>`,
		)
	})
}

// Cards lists items, each card keyed by the item id.
func Cards(items []Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<div class="cards">`); err != nil {
			return err
		}
		for _, it := range items {
			if err := Card(it).Render(ctx, w); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	})
}

func Card(it Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class, toggle := "card", "Done"
		if it.Completed {
			class, toggle = "card completed", "Undo"
		}

		return write(w,
			`<div data-key="`, templ.EscapeString(it.ID), `" class="`, class, `">`,
			`<textarea>`, templ.EscapeString(it.Text), `</textarea>`,
			`<button data-action="toggleItem">`, toggle, `</button>`,
			`<button data-action="deleteItem">Delete</button>`,
			`</div>`,
		)
	})
}
