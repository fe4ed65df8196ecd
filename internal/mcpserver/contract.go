package mcpserver

// ModelFormatContract describes the model file format and the identity
// rules that govern edits, for LLM consumers of the tools.
const ModelFormatContract = `# Model Tree Contract

The tree is a set of uniquely named models. A model is either a **leaf**
(it has an algorithm) or an **internal** node (it has an ordered list of child
names). The same model may appear under several parents and several times
under one parent; its ` + "`" + `ref_count` + "`" + ` is the number of child slots naming it.

## Model files

Each ` + "`" + `.json` + "`" + `, ` + "`" + `.yaml` + "`" + ` or ` + "`" + `.yml` + "`" + ` file in the models directory declares one model:

` + "```" + `yaml
name: Portfolio          # defaults to the file name without extension
children: [Bonds, Equity, Bonds]
` + "```" + `

` + "```" + `yaml
name: Bonds
algorithm: weighted mean
` + "```" + `

A child name without a file becomes a leaf with algorithm
"` + "algorithm undefined" + `".

## Identity rules

1. **Rename** to a free name renames the model and every reference to it.
2. **Rename a leaf onto another leaf** merges them: every reference now
   points at the existing leaf and the renamed one disappears.
3. **Any other collision** keeps both models; the requested name gets
   " (duplicate)" appended until it is free. Always continue with the
   ` + "`" + `new_name` + "`" + ` returned by rename_node.
4. **add_node** appends a leaf named "new node" (or "new node1", "new node2", ...)
   to an internal parent.
5. **delete_node** removes every occurrence of the child from that parent. The
   model itself is removed only when that parent held all its references.
6. **toggle_node_kind** turns a leaf into an empty internal node, or an
   internal node into a leaf. Former children stay in the tree.

## Errors

A tool error means the request did not match the tree (unknown model, wrong
kind, missing edge). Re-read the tree with get_node / get_children before
retrying.
`
