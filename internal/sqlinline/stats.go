package sqlinline

const QCountUsers = `--sql 1b42ff7f-9924-4e15-9583-f3766a9182ec
select count(*)
from users;
`

const QCountUsersSince = `--sql c74d9a63-2bb9-4349-98c2-a79ae5e6365b
select count(*)
from users
where created_at >= $1::timestamptz;
`

const QCountWishlists = `--sql f598d74d-8381-42c7-b21f-5f9626e23d62
select count(*)
from wishlists;
`
