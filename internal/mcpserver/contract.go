package mcpserver

// ArticleFormatContract describes the article format that LLM consumers
// should follow when reading or suggesting edits to articles.
const ArticleFormatContract = `# Zendown Article Format

Articles live under ` + "`content/`" + `. The directory nesting gives each article its
ref: ` + "`content/guide/install.md`" + ` is ` + "`/guide/install`" + `, with label ` + "`install`" + `.
A file named ` + "`index`" + ` stands for its directory.

## Structure

` + "```" + `markdown
title: Human-readable title        # REQUIRED
subtitle: Shown under the title     # OPTIONAL
slug: install                       # OPTIONAL – anchor in single-page output
order: 2                            # OPTIONAL – position in single-page output
tags: [setup, cli]                  # OPTIONAL
---

Body text in Markdown.
` + "```" + `

A ` + "`.yml`" + ` file holds a header only. A ` + "`.md`" + ` file without a ` + "`---`" + ` line is all header.

## Links

1. ` + "`[text](install)`" + ` links to the unique article labelled ` + "`install`" + `.
2. ` + "`[text](/guide/install)`" + ` links by full ref.
3. ` + "`[text](install#setup)`" + ` links to a section anchor; ` + "`[text](#setup)`" + ` stays in the same article.
4. Destinations with a scheme or a ` + "`.`" + ` are external and left alone.
5. A label shared by two articles is ambiguous; use the full ref instead.

Use the ` + "`resolve_reference`" + ` tool to check a destination before writing it.

## Headings

Each heading gets an anchor: its ` + "`{#id}`" + ` attribute if present, otherwise a
slug of its text. Repeated anchors get ` + "`-1`" + `, ` + "`-2`" + ` suffixes.

## Assets and includes

- ` + "`![alt](logo.png)`" + ` refers to ` + "`assets/logo.png`" + ` by label or full ref.
- ` + "`@include{snippet}`" + ` splices in ` + "`includes/snippet.md`" + `.

## Macros

Inline macros are written ` + "`@name`" + ` or ` + "`@name{arg}`" + ` in text. Block macros sit
alone on a line, optionally with a trailing colon and an indented blockquote body:

` + "```" + `markdown
@note:
    > Remember to restart the server.
` + "```" + `

Built-in macros: include, toc, callout, note, warning, defs, yell, pop.
Projects may define more in ` + "`zendown.yml`" + ` under ` + "`macros`" + `.
`
