package index

// schema creates the catalogue table and an external-content FTS5 index
// kept in sync by triggers. Upserts go through ON CONFLICT DO UPDATE so the
// update trigger fires; INSERT OR REPLACE would skip the delete trigger.
const schema = `
CREATE TABLE IF NOT EXISTS books (
    id        INTEGER PRIMARY KEY,
    title     TEXT    NOT NULL DEFAULT '',
    author    TEXT    NOT NULL DEFAULT '',
    publisher TEXT    NOT NULL DEFAULT '',
    extension TEXT    NOT NULL DEFAULT '',
    filesize  INTEGER NOT NULL DEFAULT 0,
    language  TEXT    NOT NULL DEFAULT '',
    year      INTEGER NOT NULL DEFAULT 0,
    pages     INTEGER NOT NULL DEFAULT 0,
    isbn      TEXT    NOT NULL DEFAULT '',
    ipfs_cid  TEXT    NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts5(
    title, author, publisher, extension, language, isbn,
    content='books',
    content_rowid='id',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS books_ai AFTER INSERT ON books BEGIN
    INSERT INTO books_fts(rowid, title, author, publisher, extension, language, isbn)
    VALUES (new.id, new.title, new.author, new.publisher, new.extension, new.language, new.isbn);
END;

CREATE TRIGGER IF NOT EXISTS books_ad AFTER DELETE ON books BEGIN
    INSERT INTO books_fts(books_fts, rowid, title, author, publisher, extension, language, isbn)
    VALUES ('delete', old.id, old.title, old.author, old.publisher, old.extension, old.language, old.isbn);
END;

CREATE TRIGGER IF NOT EXISTS books_au AFTER UPDATE ON books BEGIN
    INSERT INTO books_fts(books_fts, rowid, title, author, publisher, extension, language, isbn)
    VALUES ('delete', old.id, old.title, old.author, old.publisher, old.extension, old.language, old.isbn);
    INSERT INTO books_fts(rowid, title, author, publisher, extension, language, isbn)
    VALUES (new.id, new.title, new.author, new.publisher, new.extension, new.language, new.isbn);
END;
`

const upsertBook = `
INSERT INTO books (id, title, author, publisher, extension, filesize, language, year, pages, isbn, ipfs_cid)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    author = excluded.author,
    publisher = excluded.publisher,
    extension = excluded.extension,
    filesize = excluded.filesize,
    language = excluded.language,
    year = excluded.year,
    pages = excluded.pages,
    isbn = excluded.isbn,
    ipfs_cid = excluded.ipfs_cid`

// searchBooks ranks inside the FTS table first so bm25 is computed on the
// virtual table scan, then joins the stored columns.
const searchBooks = `
SELECT b.id, b.title, b.author, b.publisher, b.extension, b.filesize,
       b.language, b.year, b.pages, b.isbn, b.ipfs_cid
FROM (
    SELECT rowid, rank FROM books_fts
    WHERE books_fts MATCH ?
    ORDER BY rank, rowid
    LIMIT ?
) AS hits
JOIN books b ON b.id = hits.rowid
ORDER BY hits.rank, b.id`
