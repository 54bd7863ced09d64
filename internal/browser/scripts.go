package browser

const clickTextJS = `function (text) {
  const wanted = text.trim().toLowerCase();
  const candidates = document.querySelectorAll(
    'button, a, [role="button"], [role="option"], [role="menuitem"], label, span, div, li, input[type="submit"], input[type="button"]');
  let best = null;
  for (const el of candidates) {
    const own = (el.innerText || el.value || '').trim().toLowerCase();
    if (own !== wanted) continue;
    if (!best || best.contains(el)) best = el;
  }
  if (!best) return false;
  best.scrollIntoView({block: 'center'});
  best.click();
  return true;
}`

const clickCheckboxJS = `function (text) {
  const wanted = text.trim().toLowerCase();
  const boxes = document.querySelectorAll('input[type="checkbox"], [role="checkbox"]');
  for (const box of boxes) {
    const label = box.labels && box.labels[0];
    const parts = [
      label && label.innerText,
      box.getAttribute('aria-label'),
      box.closest('label') && box.closest('label').innerText,
      box.parentElement && box.parentElement.innerText,
    ];
    if (!parts.some(p => p && p.trim().toLowerCase().includes(wanted))) continue;
    box.scrollIntoView({block: 'center'});
    box.click();
    return true;
  }
  return false;
}`

const setValueJS = `function (sel, html) {
  const el = document.querySelector(sel);
  if (!el) return false;
  el.value = html;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  return true;
}`
