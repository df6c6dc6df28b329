package store

const schema = `
CREATE TABLE IF NOT EXISTS ItemTable (
    key TEXT UNIQUE ON CONFLICT REPLACE,
    value BLOB
);
`
