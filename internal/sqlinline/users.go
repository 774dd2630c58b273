package sqlinline

const QInsertUser = `--sql f7257711-b528-45eb-9f24-055859490af9
insert into users (id, username, avatar, role, balance, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::numeric, $6::timestamptz);
`

const QSelectUserByID = `--sql 57c2edb0-1743-4b01-961b-3e341a817e61
select id::text, username, avatar, role, balance::text, created_at
from users
where id = $1::uuid;
`

const QUpdateUserRole = `--sql e27c5472-c982-449a-ad9e-8e8578a7c0b3
update users
set role = $2::text
where id = $1::uuid;
`

const QCreditUserBalance = `--sql 9fb9de69-f105-4d43-9062-1f095d2b6ff6
update users
set balance = balance + $2::numeric
where id = $1::uuid;
`
