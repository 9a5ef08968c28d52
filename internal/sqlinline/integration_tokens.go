package sqlinline

const QSelectIntegrationToken = `--sql 4c0b9f1e-2d6a-47c8-9b35-e1a7d0f4c682
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql b7e3a925-1f48-4d0c-8a61-35c9f2d7b014
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
