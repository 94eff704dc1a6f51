package catalog

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// leveledList turns the catalog into pterm's indented list form.
func (c *Catalog) leveledList() pterm.LeveledList {
	var list pterm.LeveledList
	if c == nil {
		return list
	}

	var visit func(n *Node, level int)
	visit = func(n *Node, level int) {
		for _, child := range n.order {
			text := child.Name
			if child.Level == LevelChapter {
				text = fmt.Sprintf("%s (%d videos)", child.Name, len(child.entries))
			}
			list = append(list, pterm.LeveledListItem{Level: level, Text: text})
			visit(child, level+1)
		}
		for _, e := range n.entries {
			list = append(list, pterm.LeveledListItem{Level: level, Text: e.Name})
		}
	}
	visit(c.top, 0)
	return list
}

// TreeString renders the catalog as a pterm tree.
func (c *Catalog) TreeString() (string, error) {
	root := putils.TreeFromLeveledList(c.leveledList())
	root.Text = c.Root
	return pterm.DefaultTree.WithRoot(root).Srender()
}

// ShowTree prints the catalog as a pretty tree.
func (c *Catalog) ShowTree() error {
	out, err := c.TreeString()
	if err != nil {
		return err
	}
	pterm.Println(out)
	return nil
}
